// lobby.go

package game

import (
	"errors"

	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/internal/protocol"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

// PlayerStore 玩家战绩存储
type PlayerStore interface {
	FindByName(name string) (models.PlayerRecord, bool)
	CreateOrGet(name string) models.PlayerRecord
	RecordWin(name string) models.PlayerRecord
	RecordLoss(name string) models.PlayerRecord
	RecordTie(name string) models.PlayerRecord
}

// Lobby 大厅：登录、邀请握手和大厅内消息
type Lobby struct {
	sessions *SessionTable
	rooms    *RoomPool
	store    PlayerStore
}

// NewLobby 创建大厅
func NewLobby(sessions *SessionTable, rooms *RoomPool, store PlayerStore) *Lobby {
	return &Lobby{
		sessions: sessions,
		rooms:    rooms,
		store:    store,
	}
}

// reject 发送一个标签后关闭连接
func reject(conn PlayerConn, tag protocol.MessageType) {
	conn.Send(protocol.Encode(tag))
	conn.Close()
}

// Admit 处理登录消息：分配槽位并绑定玩家记录
func (l *Lobby) Admit(conn PlayerConn, msg protocol.Message) (*Session, bool) {
	name, avatar, err := msg.Login()
	if err != nil || name == "" {
		logger.Lobby.Info("来自 %s 的登录消息无效", conn.RemoteAddr())
		reject(conn, protocol.Failure)
		return nil, false
	}

	if _, dup := l.sessions.FindByName(name); dup {
		logger.Lobby.Info("玩家 %s 已在线，拒绝来自 %s 的重复登录", name, conn.RemoteAddr())
		reject(conn, protocol.DeniedDuplicateName)
		return nil, false
	}

	s, ok := l.sessions.Acquire(name, avatar, conn)
	if !ok {
		logger.Lobby.Warn("服务器已满，拒绝玩家 %s", name)
		reject(conn, protocol.Failure)
		return nil, false
	}

	rec := l.store.CreateOrGet(name)
	logger.Lobby.Info("玩家 %s 登录，槽位 %d，头像 %d，战绩 %d/%d/%d",
		name, s.Ref.Slot, avatar, rec.GamesWon, rec.GamesLost, rec.GamesTied)
	return s, true
}

// ServiceSessions 处理所有不在对局中的会话，每个会话每轮最多一条消息
func (l *Lobby) ServiceSessions() {
	l.sessions.ForEach(func(s *Session) {
		// 会话可能在本轮被释放或进入对局
		if cur, ok := l.sessions.Resolve(s.Ref); !ok || cur != s || s.State == models.StateGameplay {
			return
		}

		msg, ok, err := s.Conn.Poll()
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownTag) || errors.Is(err, protocol.ErrShortFrame) {
				l.violation(s, msg.Type)
				return
			}
			logger.Lobby.Info("玩家 %s 连接断开: %v", s.Name, err)
			l.Disconnect(s)
			return
		}
		if ok {
			l.dispatch(s, msg)
		}
	})
}

func (l *Lobby) dispatch(s *Session, msg protocol.Message) {
	switch msg.Type {
	case protocol.RequestLobby:
		s.Conn.Send(l.Snapshot())
	case protocol.Chat:
		l.broadcastChat(s, msg)
	case protocol.ClientQuitting:
		logger.Lobby.Info("玩家 %s 退出", s.Name)
		l.Disconnect(s)
	case protocol.Invite:
		l.handleInvite(s, msg)
	case protocol.RespondAccept:
		l.handleAccept(s)
	case protocol.RespondDecline:
		l.handleDecline(s)
	case protocol.DoneWithStatScreen:
		if s.State == models.StateStatScreen {
			s.State = models.StateLobby
		}
	default:
		l.violation(s, msg.Type)
	}
}

// Snapshot 大厅快照，每个槽位一条记录
func (l *Lobby) Snapshot() []byte {
	entries := make([]protocol.LobbyEntry, l.sessions.Capacity())
	l.sessions.ForEach(func(s *Session) {
		rec, _ := l.store.FindByName(s.Name)
		entries[s.Ref.Slot] = protocol.LobbyEntry{
			Name:   s.Name,
			Won:    rec.GamesWon,
			Lost:   rec.GamesLost,
			Tied:   rec.GamesTied,
			Avatar: s.Avatar,
		}
	})
	return protocol.NewLobbySnapshot(entries)
}

// broadcastChat 聊天广播给所有在线玩家
func (l *Lobby) broadcastChat(s *Session, msg protocol.Message) {
	text, err := msg.ChatText()
	if err != nil {
		return
	}
	frame := protocol.NewChat(s.Name, s.Avatar, text)
	l.sessions.ForEach(func(other *Session) {
		other.Conn.Send(frame)
	})
}

func (l *Lobby) handleInvite(s *Session, msg protocol.Message) {
	if s.State != models.StateLobby {
		s.Conn.Send(protocol.Encode(protocol.GotDeclined))
		return
	}

	name, err := msg.InviteTarget()
	if err != nil {
		l.violation(s, msg.Type)
		return
	}

	target, ok := l.sessions.FindByName(name)
	if !ok || target == s || target.State != models.StateLobby {
		logger.Lobby.Info("玩家 %s 邀请 %q 被自动拒绝", s.Name, name)
		s.Conn.Send(protocol.Encode(protocol.GotDeclined))
		return
	}

	frame, err := protocol.NewInvite(s.Name)
	if err != nil {
		s.Conn.Send(protocol.Encode(protocol.GotDeclined))
		return
	}

	target.State = models.StateReceivedInvitation
	target.Partner = s.Ref
	s.State = models.StateWaitingForHandshake
	s.Partner = target.Ref
	target.Conn.Send(frame)

	logger.Lobby.Info("玩家 %s 邀请 %s", s.Name, target.Name)
}

// partner 返回仍然有效且互相指向的握手对象
func (l *Lobby) partner(s *Session) (*Session, bool) {
	p, ok := l.sessions.Resolve(s.Partner)
	if !ok || p.Partner != s.Ref || !p.InHandshake() {
		return nil, false
	}
	return p, true
}

func (l *Lobby) handleAccept(s *Session) {
	if s.State != models.StateReceivedInvitation {
		s.Conn.Send(protocol.Encode(protocol.GotDeclined))
		return
	}

	inviter, ok := l.partner(s)
	if !ok || inviter.State != models.StateWaitingForHandshake {
		logger.Lobby.Info("玩家 %s 接受的邀请已失效", s.Name)
		s.State = models.StateLobby
		s.Partner = NoSession
		s.Conn.Send(protocol.Encode(protocol.GotDeclined))
		return
	}

	inviter.Conn.Send(protocol.Encode(protocol.GotAccepted))
	logger.Lobby.Info("玩家 %s 接受了 %s 的邀请", s.Name, inviter.Name)

	if _, err := l.rooms.Create(inviter, s); err != nil {
		logger.Lobby.Warn("无法为 %s 和 %s 创建房间: %v", inviter.Name, s.Name, err)
		inviter.Conn.Send(protocol.Encode(protocol.Failure))
		s.Conn.Send(protocol.Encode(protocol.Failure))
		l.sessions.Release(inviter.Ref)
		l.sessions.Release(s.Ref)
	}
}

func (l *Lobby) handleDecline(s *Session) {
	if !s.InHandshake() {
		return
	}

	if p, ok := l.partner(s); ok {
		p.State = models.StateLobby
		p.Partner = NoSession
		p.Conn.Send(protocol.Encode(protocol.GotDeclined))
		logger.Lobby.Info("玩家 %s 拒绝了与 %s 的邀请", s.Name, p.Name)
	}
	s.State = models.StateLobby
	s.Partner = NoSession
}

// violation 协议错误：发送 Failure 并断开
func (l *Lobby) violation(s *Session, tag protocol.MessageType) {
	logger.Lobby.Warn("玩家 %s 在状态 %s 发送了意外的消息 %s，断开连接", s.Name, s.State, tag)
	s.Conn.Send(protocol.Encode(protocol.Failure))
	l.Disconnect(s)
}

// Disconnect 释放会话；握手中的另一方收到拒绝并回到大厅
func (l *Lobby) Disconnect(s *Session) {
	if s.InHandshake() {
		if p, ok := l.partner(s); ok {
			p.State = models.StateLobby
			p.Partner = NoSession
			p.Conn.Send(protocol.Encode(protocol.GotDeclined))
		}
	}
	l.sessions.Release(s.Ref)
}
