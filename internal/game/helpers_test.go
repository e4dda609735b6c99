package game

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/internal/playerdb"
	"github.com/jacl-coder/TicTacTwo-Server/internal/protocol"
)

// fakeConn 脚本化的连接：inbox 中的消息按顺序被 Poll 取出，发送的帧被记录
type fakeConn struct {
	id     string
	inbox  []inbound
	sent   [][]byte
	closed bool
}

var fakeConnSeq int

func newFakeConn() *fakeConn {
	fakeConnSeq++
	return &fakeConn{id: fmt.Sprintf("fake-%d", fakeConnSeq)}
}

func (c *fakeConn) ID() string         { return c.id }
func (c *fakeConn) RemoteAddr() string { return c.id }

func (c *fakeConn) Poll() (protocol.Message, bool, error) {
	if len(c.inbox) > 0 {
		in := c.inbox[0]
		c.inbox = c.inbox[1:]
		if in.err != nil {
			return in.msg, false, in.err
		}
		return in.msg, true, nil
	}
	if c.closed {
		return protocol.Message{}, false, ErrConnClosed
	}
	return protocol.Message{}, false, nil
}

func (c *fakeConn) Send(frame []byte) error {
	if c.closed {
		return ErrConnClosed
	}
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// push 把一帧放入收件箱
func (c *fakeConn) push(t *testing.T, frame []byte) {
	t.Helper()
	msg, err := protocol.DecodeMessage(frame)
	require.NoError(t, err)
	c.inbox = append(c.inbox, inbound{msg: msg})
}

func (c *fakeConn) pushTag(t *testing.T, tag protocol.MessageType) {
	c.push(t, protocol.Encode(tag))
}

func (c *fakeConn) pushErr(err error) {
	c.inbox = append(c.inbox, inbound{err: err})
}

// tags 已发送帧的标签
func (c *fakeConn) tags() []protocol.MessageType {
	out := make([]protocol.MessageType, len(c.sent))
	for i, f := range c.sent {
		out[i] = protocol.MessageType(f[0])
	}
	return out
}

func (c *fakeConn) last() []byte {
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

func (c *fakeConn) reset() {
	c.sent = nil
}

// capturePublisher 记录发布的对局
type capturePublisher struct {
	mu      sync.Mutex
	records []models.MatchRecord
}

func (p *capturePublisher) Publish(rec models.MatchRecord) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	return true
}

// harness 不经过网络的大厅和房间池
type harness struct {
	sessions  *SessionTable
	rooms     *RoomPool
	lobby     *Lobby
	store     *playerdb.Store
	published *capturePublisher
}

func newHarness(t *testing.T, players, rooms, idleLimit int) *harness {
	t.Helper()
	dir := t.TempDir()
	store, err := playerdb.Open(filepath.Join(dir, "players.dat"), filepath.Join(dir, "players.dat.bak"))
	require.NoError(t, err)

	pub := &capturePublisher{}
	sessions := NewSessionTable(players)
	pool := NewRoomPool(rooms, idleLimit, sessions, store, pub)
	// 邀请者执 X
	pool.coin = func() bool { return false }

	return &harness{
		sessions:  sessions,
		rooms:     pool,
		lobby:     NewLobby(sessions, pool, store),
		store:     store,
		published: pub,
	}
}

// tick 与服务器主循环相同的一轮（不含登录）
func (h *harness) tick() {
	h.lobby.ServiceSessions()
	h.rooms.TickAll()
}

func loginFrame(t *testing.T, name string, avatar byte) protocol.Message {
	t.Helper()
	frame, err := protocol.NewLogin(name, avatar)
	require.NoError(t, err)
	msg, err := protocol.DecodeMessage(frame)
	require.NoError(t, err)
	return msg
}

// login 登录一名玩家并返回其连接和会话
func (h *harness) login(t *testing.T, name string) (*fakeConn, *Session) {
	t.Helper()
	conn := newFakeConn()
	s, ok := h.lobby.Admit(conn, loginFrame(t, name, 1))
	require.True(t, ok, "login %s", name)
	return conn, s
}

func inviteFrame(t *testing.T, name string) []byte {
	t.Helper()
	frame, err := protocol.NewInvite(name)
	require.NoError(t, err)
	return frame
}

// startMatch 登录两名玩家并完成邀请握手，x 执 X
func (h *harness) startMatch(t *testing.T, xName, oName string) (x, o *fakeConn, xSess, oSess *Session) {
	t.Helper()
	x, xSess = h.login(t, xName)
	o, oSess = h.login(t, oName)

	x.push(t, inviteFrame(t, oName))
	h.tick()
	o.pushTag(t, protocol.RespondAccept)
	h.tick()

	require.Equal(t, models.StateGameplay, xSess.State)
	require.Equal(t, models.StateGameplay, oSess.State)
	x.reset()
	o.reset()
	return x, o, xSess, oSess
}

func move(col, row byte) []byte {
	return protocol.NewMove(col, row)
}
