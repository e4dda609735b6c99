package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMessage_SequenceOfFrames(t *testing.T) {
	login, err := NewLogin("Alice", 3)
	require.NoError(t, err)

	var stream bytes.Buffer
	stream.Write(login)
	stream.Write(Encode(RequestLobby))
	stream.Write(NewMove(2, 1))
	stream.Write(NewChatRequest("hello", 3))

	msg, err := ReadMessage(&stream)
	require.NoError(t, err)
	name, avatar, err := msg.Login()
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, byte(3), avatar)

	msg, err = ReadMessage(&stream)
	require.NoError(t, err)
	assert.Equal(t, RequestLobby, msg.Type)
	assert.Empty(t, msg.Payload)

	msg, err = ReadMessage(&stream)
	require.NoError(t, err)
	col, row, err := msg.Move()
	require.NoError(t, err)
	assert.Equal(t, 2, col)
	assert.Equal(t, 1, row)

	msg, err = ReadMessage(&stream)
	require.NoError(t, err)
	text, err := msg.ChatText()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = ReadMessage(&stream)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessage_UnknownTag(t *testing.T) {
	msg, err := ReadMessage(bytes.NewReader([]byte{'Z', 0, 0}))
	assert.ErrorIs(t, err, ErrUnknownTag)
	assert.Equal(t, MessageType('Z'), msg.Type)

	// 服务器发往客户端的标签不能由客户端发送
	_, err = ReadMessage(bytes.NewReader(Encode(YouWin)))
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestReadMessage_TruncatedFrame(t *testing.T) {
	_, err := ReadMessage(bytes.NewReader([]byte{byte(Move), 1}))
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestDecodeMessage(t *testing.T) {
	frame, err := NewInvite("Bob")
	require.NoError(t, err)

	msg, err := DecodeMessage(frame)
	require.NoError(t, err)
	target, err := msg.InviteTarget()
	require.NoError(t, err)
	assert.Equal(t, "Bob", target)

	_, err = DecodeMessage(frame[:10])
	assert.ErrorIs(t, err, ErrShortFrame)

	_, err = DecodeMessage(nil)
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestNewLogin_Layout(t *testing.T) {
	frame, err := NewLogin("Alice", 7)
	require.NoError(t, err)
	require.Len(t, frame, LoginFrameSize)
	assert.Equal(t, byte('>'), frame[0])
	assert.Equal(t, "Alice", string(frame[1:6]))
	assert.Equal(t, byte(0), frame[6])
	assert.Equal(t, byte(7), frame[32])

	_, err = NewLogin(strings.Repeat("n", MaxNameLength+1), 0)
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestLogin_FullLengthName(t *testing.T) {
	name := strings.Repeat("a", MaxNameLength)
	frame, err := NewLogin(name, 1)
	require.NoError(t, err)

	msg, err := DecodeMessage(frame)
	require.NoError(t, err)
	got, avatar, err := msg.Login()
	require.NoError(t, err)
	assert.Equal(t, name, got)
	assert.Equal(t, byte(1), avatar)
}

func TestChatText_Truncated(t *testing.T) {
	frame := NewChatRequest(strings.Repeat("x", 50), 0)
	msg, err := DecodeMessage(frame)
	require.NoError(t, err)
	text, err := msg.ChatText()
	require.NoError(t, err)
	assert.Len(t, text, MaxChatLength)
}

func TestNewChat_Layout(t *testing.T) {
	frame := NewChat("Alice", 4, "gg")
	require.Len(t, frame, ChatFrameSize)
	assert.Equal(t, byte('|'), frame[0])
	assert.Equal(t, byte(4), frame[ChatAvatarAt])

	line, avatar, err := ChatLine(frame)
	require.NoError(t, err)
	assert.Equal(t, "Alice: gg", line)
	assert.Equal(t, byte(4), avatar)
}

func TestNewChat_LongLineKeepsTerminator(t *testing.T) {
	frame := NewChat(strings.Repeat("n", 30), 9, strings.Repeat("t", 40))
	require.Len(t, frame, ChatFrameSize)
	assert.Equal(t, byte(0), frame[ChatAvatarAt-1])
	assert.Equal(t, byte(9), frame[ChatAvatarAt])
}

func TestNewItsYourTurn(t *testing.T) {
	var board [BoardCells]byte
	board[0] = 'x'
	board[4] = 'o'
	frame := NewItsYourTurn(board)
	require.Len(t, frame, 10)
	assert.Equal(t, byte('T'), frame[0])
	assert.Equal(t, byte('x'), frame[1])
	assert.Equal(t, byte('o'), frame[5])
}

func TestLobbySnapshot_Layout(t *testing.T) {
	entries := []LobbyEntry{
		{Name: "Alice", Won: 3, Lost: 1, Tied: 258, Avatar: 2},
		{},
	}
	frame := NewLobbySnapshot(entries)
	require.Len(t, frame, 1+2*LobbyRecordSize)

	rec := frame[1 : 1+LobbyRecordSize]
	assert.Equal(t, "Alice", string(rec[:5]))
	assert.Equal(t, []byte{0, 0, 0, 3}, rec[32:36])
	assert.Equal(t, []byte{0, 0, 0, 1}, rec[36:40])
	assert.Equal(t, []byte{0, 0, 1, 2}, rec[40:44])
	assert.Equal(t, byte(2), rec[44])

	empty := frame[1+LobbyRecordSize:]
	assert.Equal(t, make([]byte, LobbyRecordSize), empty)

	decoded, err := DecodeLobbySnapshot(frame)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}

func TestFrameSize(t *testing.T) {
	assert.Equal(t, 64, FrameSize(Login))
	assert.Equal(t, 64, FrameSize(Invite))
	assert.Equal(t, 65, FrameSize(Chat))
	assert.Equal(t, 3, FrameSize(Move))
	for _, tag := range []MessageType{RequestLobby, RespondAccept, RespondDecline, DoneWithStatScreen, ClientQuitting} {
		assert.Equal(t, 1, FrameSize(tag), tag.String())
	}
	assert.Equal(t, 0, FrameSize(Failure))
}
