package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrUnknownTag 标签不属于客户端可发送的消息
	ErrUnknownTag = errors.New("未知的消息标签")
	// ErrShortFrame 消息帧长度不足
	ErrShortFrame = errors.New("消息帧长度不足")
	// ErrNameTooLong 名字超过最大长度
	ErrNameTooLong = errors.New("名字过长")
)

// ReadMessage 从流中读取一条完整的客户端消息
func ReadMessage(r io.Reader) (Message, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return Message{}, err
	}

	t := MessageType(tag[0])
	size := FrameSize(t)
	if size == 0 {
		return Message{Type: t}, fmt.Errorf("%w: %s", ErrUnknownTag, t)
	}

	payload := make([]byte, size-1)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Message{Type: t}, fmt.Errorf("%w: %s", ErrShortFrame, t)
		}
		return Message{Type: t}, err
	}
	return Message{Type: t, Payload: payload}, nil
}

// DecodeMessage 解析一个已分帧的消息（WebSocket 二进制消息即为一帧）
func DecodeMessage(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return Message{}, ErrShortFrame
	}
	t := MessageType(frame[0])
	size := FrameSize(t)
	if size == 0 {
		return Message{Type: t}, fmt.Errorf("%w: %s", ErrUnknownTag, t)
	}
	if len(frame) < size {
		return Message{Type: t}, fmt.Errorf("%w: %s 需要 %d 字节, 实际 %d", ErrShortFrame, t, size, len(frame))
	}
	payload := make([]byte, size-1)
	copy(payload, frame[1:size])
	return Message{Type: t, Payload: payload}, nil
}

// cString 读取以 NUL 结尾的字符串，最多 limit 字节
func cString(b []byte, limit int) string {
	if len(b) > limit {
		b = b[:limit]
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// putName 写入 NUL 填充的名字
func putName(dst []byte, name string) error {
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: %q", ErrNameTooLong, name)
	}
	copy(dst, name)
	return nil
}

// Login 解析登录消息中的名字和头像
func (m Message) Login() (string, byte, error) {
	if m.Type != Login || len(m.Payload) < LoginFrameSize-1 {
		return "", 0, ErrShortFrame
	}
	name := cString(m.Payload, MaxNameLength)
	return name, m.Payload[LoginAvatarAt-1], nil
}

// InviteTarget 解析邀请消息中的名字
func (m Message) InviteTarget() (string, error) {
	if m.Type != Invite || len(m.Payload) < InviteFrameSize-1 {
		return "", ErrShortFrame
	}
	return cString(m.Payload, MaxNameLength), nil
}

// ChatText 解析聊天文本，超过 MaxChatLength 的部分被截断
func (m Message) ChatText() (string, error) {
	if m.Type != Chat || len(m.Payload) == 0 {
		return "", ErrShortFrame
	}
	return cString(m.Payload, MaxChatLength), nil
}

// Move 解析落子消息，返回列和行
func (m Message) Move() (col, row int, err error) {
	if m.Type != Move || len(m.Payload) < MoveFrameSize-1 {
		return 0, 0, ErrShortFrame
	}
	return int(m.Payload[0]), int(m.Payload[1]), nil
}

// Encode 编码只有标签的消息
func Encode(t MessageType) []byte {
	return []byte{byte(t)}
}

// NewLogin 编码登录消息
func NewLogin(name string, avatar byte) ([]byte, error) {
	buf := make([]byte, LoginFrameSize)
	buf[0] = byte(Login)
	if err := putName(buf[1:1+MaxNameLength], name); err != nil {
		return nil, err
	}
	buf[LoginAvatarAt] = avatar
	return buf, nil
}

// NewInvite 编码邀请消息；客户端发送时为目标名字，服务器转发时为邀请者名字
func NewInvite(name string) ([]byte, error) {
	buf := make([]byte, InviteFrameSize)
	buf[0] = byte(Invite)
	if err := putName(buf[1:1+MaxNameLength], name); err != nil {
		return nil, err
	}
	return buf, nil
}

// NewChatRequest 编码客户端发出的聊天消息
func NewChatRequest(text string, avatar byte) []byte {
	buf := make([]byte, ChatFrameSize)
	buf[0] = byte(Chat)
	if len(text) > MaxChatLength {
		text = text[:MaxChatLength]
	}
	copy(buf[1:], text)
	buf[ChatAvatarAt] = avatar
	return buf
}

// NewChat 编码服务器转发的聊天消息: "名字: 文本"
func NewChat(sender string, avatar byte, text string) []byte {
	buf := make([]byte, ChatFrameSize)
	buf[0] = byte(Chat)
	line := sender + ": " + text
	// 保留一个字节给 NUL
	if limit := ChatAvatarAt - 2; len(line) > limit {
		line = line[:limit]
	}
	copy(buf[1:], line)
	buf[ChatAvatarAt] = avatar
	return buf
}

// ChatLine 解析服务器转发的聊天消息
func ChatLine(frame []byte) (string, byte, error) {
	if len(frame) < ChatFrameSize || MessageType(frame[0]) != Chat {
		return "", 0, ErrShortFrame
	}
	return cString(frame[1:ChatAvatarAt], ChatAvatarAt-1), frame[ChatAvatarAt], nil
}

// NewMove 编码落子消息
func NewMove(col, row byte) []byte {
	return []byte{byte(Move), col, row}
}

// NewItsYourTurn 编码轮到你的消息，附带棋盘快照（行优先）
func NewItsYourTurn(board [BoardCells]byte) []byte {
	buf := make([]byte, 1+BoardCells)
	buf[0] = byte(ItsYourTurn)
	copy(buf[1:], board[:])
	return buf
}

// NewLobbySnapshot 编码大厅快照，每个槽位一条记录，空槽位为全零记录
func NewLobbySnapshot(entries []LobbyEntry) []byte {
	buf := make([]byte, 1+len(entries)*LobbyRecordSize)
	buf[0] = byte(RequestLobby)
	for i, e := range entries {
		rec := buf[1+i*LobbyRecordSize : 1+(i+1)*LobbyRecordSize]
		name := e.Name
		if len(name) > MaxNameLength {
			name = name[:MaxNameLength]
		}
		copy(rec, name)
		binary.BigEndian.PutUint32(rec[lobbyWonAt:], e.Won)
		binary.BigEndian.PutUint32(rec[lobbyLostAt:], e.Lost)
		binary.BigEndian.PutUint32(rec[lobbyTiedAt:], e.Tied)
		rec[lobbyAvatarAt] = e.Avatar
	}
	return buf
}

// DecodeLobbySnapshot 解析大厅快照
func DecodeLobbySnapshot(frame []byte) ([]LobbyEntry, error) {
	if len(frame) < 1 || MessageType(frame[0]) != RequestLobby {
		return nil, ErrShortFrame
	}
	body := frame[1:]
	if len(body)%LobbyRecordSize != 0 {
		return nil, fmt.Errorf("%w: 大厅快照长度 %d", ErrShortFrame, len(body))
	}
	entries := make([]LobbyEntry, len(body)/LobbyRecordSize)
	for i := range entries {
		rec := body[i*LobbyRecordSize : (i+1)*LobbyRecordSize]
		entries[i] = LobbyEntry{
			Name:   cString(rec, MaxNameLength+1),
			Won:    binary.BigEndian.Uint32(rec[lobbyWonAt:]),
			Lost:   binary.BigEndian.Uint32(rec[lobbyLostAt:]),
			Tied:   binary.BigEndian.Uint32(rec[lobbyTiedAt:]),
			Avatar: rec[lobbyAvatarAt],
		}
	}
	return entries, nil
}
