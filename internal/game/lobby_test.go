package game

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/internal/protocol"
)

func TestAdmit_CreatesRecordAndLobbyState(t *testing.T) {
	h := newHarness(t, 4, 2, 100)

	conn, s := h.login(t, "Alice")
	assert.Equal(t, models.StateLobby, s.State)
	assert.Equal(t, "Alice", s.Name)
	assert.Equal(t, byte(1), s.Avatar)
	assert.Empty(t, conn.sent)

	rec, ok := h.store.FindByName("Alice")
	assert.True(t, ok)
	assert.Equal(t, models.PlayerRecord{Name: "Alice"}, rec)
}

func TestAdmit_ServerFull(t *testing.T) {
	h := newHarness(t, 1, 1, 100)
	h.login(t, "Alice")

	conn := newFakeConn()
	_, ok := h.lobby.Admit(conn, loginFrame(t, "Bob", 0))
	assert.False(t, ok)
	assert.Equal(t, []protocol.MessageType{protocol.Failure}, conn.tags())
	assert.True(t, conn.closed)

	_, found := h.store.FindByName("Bob")
	assert.False(t, found)
}

func TestAdmit_DuplicateName(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	h.login(t, "Alice")

	conn := newFakeConn()
	_, ok := h.lobby.Admit(conn, loginFrame(t, "Alice", 0))
	assert.False(t, ok)
	assert.Equal(t, []protocol.MessageType{protocol.DeniedDuplicateName}, conn.tags())
	assert.True(t, conn.closed)
	assert.Equal(t, 1, h.sessions.Len())
}

func TestAdmit_InvalidLogin(t *testing.T) {
	h := newHarness(t, 4, 2, 100)

	conn := newFakeConn()
	_, ok := h.lobby.Admit(conn, loginFrame(t, "", 0))
	assert.False(t, ok)
	assert.Equal(t, []protocol.MessageType{protocol.Failure}, conn.tags())

	conn = newFakeConn()
	_, ok = h.lobby.Admit(conn, protocol.Message{Type: protocol.RequestLobby})
	assert.False(t, ok)
	assert.True(t, conn.closed)
}

func TestRequestLobby_Snapshot(t *testing.T) {
	h := newHarness(t, 3, 2, 100)
	alice, _ := h.login(t, "Alice")
	h.login(t, "Bob")
	h.store.RecordWin("Bob")

	alice.pushTag(t, protocol.RequestLobby)
	h.tick()

	require.Len(t, alice.sent, 1)
	entries, err := protocol.DecodeLobbySnapshot(alice.last())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Alice", entries[0].Name)
	assert.Equal(t, protocol.LobbyEntry{Name: "Bob", Won: 1, Avatar: 1}, entries[1])
	assert.Equal(t, protocol.LobbyEntry{}, entries[2])
}

func TestChat_BroadcastToEveryone(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	x, o, _, _ := h.startMatch(t, "Xavier", "Olga")
	alice, _ := h.login(t, "Alice")

	alice.push(t, protocol.NewChatRequest("hi all", 1))
	h.tick()

	for _, c := range []*fakeConn{x, o, alice} {
		require.Len(t, c.sent, 1)
		line, avatar, err := protocol.ChatLine(c.last())
		require.NoError(t, err)
		assert.Equal(t, "Alice: hi all", line)
		assert.Equal(t, byte(1), avatar)
	}
}

func TestInvite_AutoDeclined(t *testing.T) {
	h := newHarness(t, 6, 2, 100)
	alice, aliceSess := h.login(t, "Alice")
	_, bobSess := h.login(t, "Bob")
	carol, carolSess := h.login(t, "Carol")

	// Bob 已收到 Carol 的邀请
	carol.push(t, inviteFrame(t, "Bob"))
	h.tick()
	require.Equal(t, models.StateReceivedInvitation, bobSess.State)

	for _, target := range []string{"Alice", "Nobody", "Bob", "Carol"} {
		alice.reset()
		alice.push(t, inviteFrame(t, target))
		h.tick()

		assert.Equal(t, []protocol.MessageType{protocol.GotDeclined}, alice.tags(), "target %s", target)
		assert.Equal(t, models.StateLobby, aliceSess.State, "target %s", target)
	}

	// 第三方状态不受影响
	assert.Equal(t, models.StateReceivedInvitation, bobSess.State)
	assert.Equal(t, carolSess.Ref, bobSess.Partner)
	assert.Equal(t, models.StateWaitingForHandshake, carolSess.State)
}

func TestInvite_ForwardedToInvitee(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	alice, aliceSess := h.login(t, "Alice")
	bob, bobSess := h.login(t, "Bob")

	alice.push(t, inviteFrame(t, "Bob"))
	h.tick()

	assert.Empty(t, alice.sent)
	require.Len(t, bob.sent, 1)
	msg, err := protocol.DecodeMessage(bob.last())
	require.NoError(t, err)
	from, err := msg.InviteTarget()
	require.NoError(t, err)
	assert.Equal(t, "Alice", from)

	assert.Equal(t, models.StateWaitingForHandshake, aliceSess.State)
	assert.Equal(t, models.StateReceivedInvitation, bobSess.State)
	assert.Equal(t, aliceSess.Ref, bobSess.Partner)
	assert.Equal(t, bobSess.Ref, aliceSess.Partner)

	// 等待回应时再次邀请被拒绝，状态不变
	alice.push(t, inviteFrame(t, "Bob"))
	h.tick()
	assert.Equal(t, []protocol.MessageType{protocol.GotDeclined}, alice.tags())
	assert.Equal(t, models.StateWaitingForHandshake, aliceSess.State)
}

func TestDecline_NotifiesInviter(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	alice, aliceSess := h.login(t, "Alice")
	bob, bobSess := h.login(t, "Bob")

	alice.push(t, inviteFrame(t, "Bob"))
	h.tick()
	bob.pushTag(t, protocol.RespondDecline)
	h.tick()

	assert.Equal(t, []protocol.MessageType{protocol.GotDeclined}, alice.tags())
	assert.Equal(t, models.StateLobby, aliceSess.State)
	assert.Equal(t, models.StateLobby, bobSess.State)
	assert.False(t, aliceSess.Partner.Valid())
	assert.False(t, bobSess.Partner.Valid())
}

func TestAccept_CreatesRoom(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	alice, aliceSess := h.login(t, "Alice")
	bob, bobSess := h.login(t, "Bob")

	alice.push(t, inviteFrame(t, "Bob"))
	h.tick()
	bob.reset()
	bob.pushTag(t, protocol.RespondAccept)
	h.tick()

	assert.Equal(t, []protocol.MessageType{protocol.GotAccepted, protocol.YouAreX}, alice.tags())
	assert.Equal(t, []protocol.MessageType{protocol.YouAreO}, bob.tags())
	assert.Equal(t, models.StateGameplay, aliceSess.State)
	assert.Equal(t, models.StateGameplay, bobSess.State)
	assert.Equal(t, 1, h.rooms.Active())
}

func TestAccept_Stale(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	_, aliceSess := h.login(t, "Alice")
	bob, _ := h.login(t, "Bob")

	// 没有收到邀请时接受
	bob.pushTag(t, protocol.RespondAccept)
	h.tick()
	assert.Equal(t, []protocol.MessageType{protocol.GotDeclined}, bob.tags())
	assert.Equal(t, models.StateLobby, aliceSess.State)
	assert.Equal(t, 0, h.rooms.Active())
}

func TestInviterQuitNotifiesInvitee(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	alice, _ := h.login(t, "Alice")
	bob, bobSess := h.login(t, "Bob")

	alice.push(t, inviteFrame(t, "Bob"))
	h.tick()

	bob.reset()
	alice.pushTag(t, protocol.ClientQuitting)
	h.tick()
	assert.Equal(t, []protocol.MessageType{protocol.GotDeclined}, bob.tags())
	assert.Equal(t, models.StateLobby, bobSess.State)
	assert.False(t, bobSess.Partner.Valid())
	assert.True(t, alice.closed)
	assert.Equal(t, 1, h.sessions.Len())
}

func TestAccept_StaleHandleAfterSlotReuse(t *testing.T) {
	h := newHarness(t, 2, 2, 100)
	alice, aliceSess := h.login(t, "Alice")
	bob, bobSess := h.login(t, "Bob")

	alice.push(t, inviteFrame(t, "Bob"))
	h.tick()

	// 槽位被直接释放并由新玩家占用，Bob 仍持有旧句柄
	h.sessions.Release(aliceSess.Ref)
	carol, carolSess := h.login(t, "Carol")
	require.Equal(t, aliceSess.Ref.Slot, carolSess.Ref.Slot)
	require.Equal(t, models.StateReceivedInvitation, bobSess.State)

	bob.reset()
	bob.pushTag(t, protocol.RespondAccept)
	h.tick()

	assert.Equal(t, []protocol.MessageType{protocol.GotDeclined}, bob.tags())
	assert.Equal(t, models.StateLobby, bobSess.State)
	assert.Empty(t, carol.sent)
	assert.Equal(t, models.StateLobby, carolSess.State)
	assert.Equal(t, 0, h.rooms.Active())
}

func TestAccept_NoFreeRoom(t *testing.T) {
	h := newHarness(t, 6, 1, 100)
	h.startMatch(t, "A", "B")

	carol, _ := h.login(t, "Carol")
	dave, _ := h.login(t, "Dave")
	carol.push(t, inviteFrame(t, "Dave"))
	h.tick()
	dave.reset()
	dave.pushTag(t, protocol.RespondAccept)
	h.tick()

	assert.Equal(t, []protocol.MessageType{protocol.GotAccepted, protocol.Failure}, carol.tags())
	assert.Equal(t, []protocol.MessageType{protocol.Failure}, dave.tags())
	assert.True(t, carol.closed)
	assert.True(t, dave.closed)
	assert.Equal(t, 2, h.sessions.Len())
}

func TestProtocolViolation(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	alice, _ := h.login(t, "Alice")

	alice.push(t, move(0, 0))
	h.tick()

	assert.Equal(t, []protocol.MessageType{protocol.Failure}, alice.tags())
	assert.True(t, alice.closed)
	assert.Equal(t, 0, h.sessions.Len())
}

func TestUnknownTagIsViolation(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	bob, _ := h.login(t, "Bob")

	_, err := protocol.DecodeMessage([]byte{'Z'})
	bob.pushErr(err)
	h.tick()

	assert.Equal(t, []protocol.MessageType{protocol.Failure}, bob.tags())
	assert.Equal(t, 0, h.sessions.Len())
}

func TestTransportFailureFreesSlot(t *testing.T) {
	h := newHarness(t, 4, 2, 100)
	alice, _ := h.login(t, "Alice")

	alice.pushErr(io.EOF)
	h.tick()

	assert.Empty(t, alice.sent)
	assert.True(t, alice.closed)
	assert.Equal(t, 0, h.sessions.Len())
}
