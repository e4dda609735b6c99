package game

import (
	"time"

	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
)

// SessionRef 会话句柄：槽位加代数，槽位被释放后旧句柄失效
type SessionRef struct {
	Slot int
	Gen  uint64
}

// NoSession 空句柄
var NoSession = SessionRef{Slot: -1}

// Valid 句柄是否指向某个槽位（不保证仍然有效）
func (r SessionRef) Valid() bool {
	return r.Slot >= 0
}

// Session 已登录的玩家会话
type Session struct {
	Ref         SessionRef
	Name        string
	Avatar      byte
	Conn        PlayerConn
	State       models.SessionState
	Partner     SessionRef // 邀请关系中的另一方
	ConnectedAt time.Time
}

// InHandshake 是否处于邀请握手中
func (s *Session) InHandshake() bool {
	return s.State == models.StateWaitingForHandshake || s.State == models.StateReceivedInvitation
}

// SessionTable 固定容量的会话槽位表
type SessionTable struct {
	slots []*Session
	gens  []uint64
	last  int
	count int
}

// NewSessionTable 创建会话表
func NewSessionTable(capacity int) *SessionTable {
	return &SessionTable{
		slots: make([]*Session, capacity),
		gens:  make([]uint64, capacity),
	}
}

// Capacity 槽位数量
func (t *SessionTable) Capacity() int {
	return len(t.slots)
}

// Len 已占用槽位数量
func (t *SessionTable) Len() int {
	return t.count
}

// Acquire 从上次分配的位置开始查找空闲槽位
func (t *SessionTable) Acquire(name string, avatar byte, conn PlayerConn) (*Session, bool) {
	n := len(t.slots)
	for i := 0; i < n; i++ {
		slot := (t.last + i) % n
		if t.slots[slot] != nil {
			continue
		}
		s := &Session{
			Ref:         SessionRef{Slot: slot, Gen: t.gens[slot]},
			Name:        name,
			Avatar:      avatar,
			Conn:        conn,
			State:       models.StateLobby,
			Partner:     NoSession,
			ConnectedAt: time.Now(),
		}
		t.slots[slot] = s
		t.last = slot
		t.count++
		return s, true
	}
	return nil, false
}

// Release 关闭连接并释放槽位；旧句柄随之失效
func (t *SessionTable) Release(ref SessionRef) {
	s, ok := t.Resolve(ref)
	if !ok {
		return
	}
	s.Conn.Close()
	s.State = models.StateNotConnected
	s.Partner = NoSession
	t.slots[ref.Slot] = nil
	t.gens[ref.Slot]++
	t.count--
}

// Resolve 通过句柄获取会话
func (t *SessionTable) Resolve(ref SessionRef) (*Session, bool) {
	if ref.Slot < 0 || ref.Slot >= len(t.slots) {
		return nil, false
	}
	s := t.slots[ref.Slot]
	if s == nil || s.Ref.Gen != ref.Gen {
		return nil, false
	}
	return s, true
}

// At 获取指定槽位的会话
func (t *SessionTable) At(slot int) (*Session, bool) {
	if slot < 0 || slot >= len(t.slots) || t.slots[slot] == nil {
		return nil, false
	}
	return t.slots[slot], true
}

// FindByName 按名字查找在线会话
func (t *SessionTable) FindByName(name string) (*Session, bool) {
	for _, s := range t.slots {
		if s != nil && s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// ForEach 按槽位顺序遍历在线会话
func (t *SessionTable) ForEach(fn func(s *Session)) {
	for _, s := range t.slots {
		if s != nil {
			fn(s)
		}
	}
}
