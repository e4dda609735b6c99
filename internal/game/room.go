package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/internal/protocol"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

// ErrNoFreeRoom 房间已全部占用
var ErrNoFreeRoom = errors.New("没有空闲房间")

// cheatingNotice 向已占用格子落子时发给双方的提示
const cheatingNotice = "cheating attempt!"

// Room 对局房间，players[0] 执 X，players[1] 执 O
type Room struct {
	ID        string
	Slot      int
	Status    models.RoomStatus
	StartedAt time.Time

	players   [2]SessionRef
	names     [2]string
	board     Board
	turn      int
	idleTicks int
}

var roomMarks = [2]Mark{MarkX, MarkO}

// Board 当前棋盘
func (r *Room) Board() Board {
	return r.board
}

// Turn 当前应落子的一方
func (r *Room) Turn() Mark {
	return roomMarks[r.turn]
}

// IdleTicks 连续无消息的轮数
func (r *Room) IdleTicks() int {
	return r.idleTicks
}

// Players 双方的会话句柄（X, O）
func (r *Room) Players() (x, o SessionRef) {
	return r.players[0], r.players[1]
}

func (r *Room) reset() {
	*r = Room{Slot: r.Slot, Status: models.RoomEmpty}
}

// RoomPool 固定容量的房间池
type RoomPool struct {
	rooms     []*Room
	last      int
	sessions  *SessionTable
	store     PlayerStore
	publisher MatchPublisher
	idleLimit int

	// 先后手的随机来源，返回 true 时交换双方
	coin func() bool
	now  func() time.Time
}

// NewRoomPool 创建房间池
func NewRoomPool(capacity, idleLimit int, sessions *SessionTable, store PlayerStore, publisher MatchPublisher) *RoomPool {
	rooms := make([]*Room, capacity)
	for i := range rooms {
		rooms[i] = &Room{Slot: i, Status: models.RoomEmpty}
	}
	return &RoomPool{
		rooms:     rooms,
		last:      capacity - 1,
		sessions:  sessions,
		store:     store,
		publisher: publisher,
		idleLimit: idleLimit,
		coin:      func() bool { return rand.Intn(2) == 1 },
		now:       time.Now,
	}
}

// Capacity 房间数量
func (p *RoomPool) Capacity() int {
	return len(p.rooms)
}

// Active 进行中的房间数量
func (p *RoomPool) Active() int {
	n := 0
	for _, r := range p.rooms {
		if r.Status != models.RoomEmpty {
			n++
		}
	}
	return n
}

// Get 获取指定槽位的房间
func (p *RoomPool) Get(slot int) (*Room, bool) {
	if slot < 0 || slot >= len(p.rooms) || p.rooms[slot].Status == models.RoomEmpty {
		return nil, false
	}
	return p.rooms[slot], true
}

// Info 房间视图
func (p *RoomPool) Info() []models.RoomInfo {
	out := make([]models.RoomInfo, 0, len(p.rooms))
	for _, r := range p.rooms {
		if r.Status == models.RoomEmpty {
			continue
		}
		out = append(out, models.RoomInfo{
			Slot:      r.Slot,
			ID:        r.ID,
			Status:    r.Status,
			PlayerX:   r.names[0],
			PlayerO:   r.names[1],
			IdleTicks: r.idleTicks,
		})
	}
	return out
}

// Create 为两名玩家分配房间，随机决定谁执 X
func (p *RoomPool) Create(a, b *Session) (*Room, error) {
	n := len(p.rooms)
	var room *Room
	for i := 1; i <= n; i++ {
		slot := (p.last + i) % n
		if p.rooms[slot].Status == models.RoomEmpty {
			room = p.rooms[slot]
			p.last = slot
			break
		}
	}
	if room == nil {
		return nil, ErrNoFreeRoom
	}

	if p.coin() {
		a, b = b, a
	}

	room.ID = uuid.New().String()
	room.Status = models.RoomActive
	room.StartedAt = p.now()
	room.players = [2]SessionRef{a.Ref, b.Ref}
	room.names = [2]string{a.Name, b.Name}
	room.board = Board{}
	room.turn = 0
	room.idleTicks = 0

	a.State = models.StateGameplay
	b.State = models.StateGameplay
	a.Partner = NoSession
	b.Partner = NoSession

	a.Conn.Send(protocol.Encode(protocol.YouAreX))
	b.Conn.Send(protocol.Encode(protocol.YouAreO))

	logger.Room.Info("房间 %d 开始对局 %s: %s(X) vs %s(O)", room.Slot, room.ID, a.Name, b.Name)
	return room, nil
}

// TickAll 推进所有进行中的房间，每名玩家每轮最多处理一条消息
func (p *RoomPool) TickAll() {
	for _, r := range p.rooms {
		if r.Status == models.RoomActive {
			p.tick(r)
		}
	}
}

func (p *RoomPool) tick(r *Room) {
	r.idleTicks++

	var (
		msgs   [2]*protocol.Message
		quit   [2]bool
		active bool
	)
	for i, ref := range r.players {
		s, ok := p.sessions.Resolve(ref)
		if !ok {
			quit[i] = true
			continue
		}
		msg, got, err := s.Conn.Poll()
		if err != nil {
			// 断线或无法分帧的数据等同于退出
			logger.Room.Info("房间 %d 玩家 %s 连接异常: %v", r.Slot, r.names[i], err)
			quit[i] = true
			continue
		}
		if !got {
			continue
		}
		active = true
		if msg.Type == protocol.ClientQuitting {
			quit[i] = true
			continue
		}
		msgs[i] = &msg
	}

	switch {
	case quit[0] && quit[1]:
		p.abandon(r)
		return
	case quit[0]:
		p.forfeit(r, 0)
		return
	case quit[1]:
		p.forfeit(r, 1)
		return
	}

	if !active {
		if r.idleTicks > p.idleLimit {
			p.timeout(r)
		}
		return
	}
	r.idleTicks = 0

	for i, msg := range msgs {
		if msg == nil {
			continue
		}
		switch msg.Type {
		case protocol.Chat:
			p.relayChat(r, i, msg)
		case protocol.Move:
			p.handleMove(r, i, msg)
		default:
			logger.Room.Debug("房间 %d 忽略 %s 的消息 %s", r.Slot, r.names[i], msg.Type)
		}
		if r.Status != models.RoomActive {
			return
		}
	}
}

// relayChat 聊天只转发给房间内的双方
func (p *RoomPool) relayChat(r *Room, from int, msg *protocol.Message) {
	text, err := msg.ChatText()
	if err != nil {
		return
	}
	sender, ok := p.sessions.Resolve(r.players[from])
	if !ok {
		return
	}
	p.sendBoth(r, protocol.NewChat(sender.Name, sender.Avatar, text))
}

func (p *RoomPool) handleMove(r *Room, from int, msg *protocol.Message) {
	if from != r.turn {
		logger.Room.Debug("房间 %d 忽略 %s 的非本回合落子", r.Slot, r.names[from])
		return
	}
	col, row, err := msg.Move()
	if err != nil {
		return
	}

	switch err := r.board.Place(col, row, roomMarks[from]); {
	case errors.Is(err, ErrCellTaken):
		logger.Room.Info("房间 %d 玩家 %s 试图覆盖格子 (%d,%d)", r.Slot, r.names[from], col, row)
		p.sendBoth(r, protocol.NewChat(r.names[from], 0, cheatingNotice))
		return
	case err != nil:
		return
	}

	r.turn ^= 1
	state, winner := r.board.CheckIfWon()
	switch state {
	case StillPlaying:
		if s, ok := p.sessions.Resolve(r.players[r.turn]); ok {
			s.Conn.Send(protocol.NewItsYourTurn(r.board.Bytes()))
		}
	case Won:
		w := 0
		if winner == MarkO {
			w = 1
		}
		p.win(r, w)
	case Tie:
		p.tie(r)
	}
}

func (p *RoomPool) win(r *Room, w int) {
	l := w ^ 1
	p.store.RecordWin(r.names[w])
	p.store.RecordLoss(r.names[l])

	p.finish(r, w, protocol.YouWin, models.StateStatScreen)
	p.finish(r, l, protocol.YouLose, models.StateStatScreen)

	logger.Room.Info("房间 %d 对局结束: %s(%s) 获胜", r.Slot, r.names[w], roomMarks[w])
	p.conclude(r, models.OutcomeWin, w, [2]models.PlayerResult{resultFor(w, 0), resultFor(w, 1)})
}

func (p *RoomPool) tie(r *Room) {
	for i := range r.players {
		p.store.RecordTie(r.names[i])
		p.finish(r, i, protocol.YouTie, models.StateStatScreen)
	}

	logger.Room.Info("房间 %d 对局结束: 平局", r.Slot)
	p.conclude(r, models.OutcomeTie, -1, [2]models.PlayerResult{models.ResultTied, models.ResultTied})
}

// forfeit 一方退出，另一方记为获胜
func (p *RoomPool) forfeit(r *Room, quitter int) {
	w := quitter ^ 1
	p.store.RecordWin(r.names[w])
	p.store.RecordLoss(r.names[quitter])

	p.finish(r, w, protocol.YouWin, models.StateStatScreen)
	p.sessions.Release(r.players[quitter])

	logger.Room.Info("房间 %d 玩家 %s 退出，%s 获胜", r.Slot, r.names[quitter], r.names[w])
	p.conclude(r, models.OutcomeForfeit, w, [2]models.PlayerResult{resultFor(w, 0), resultFor(w, 1)})
}

// abandon 双方同时退出，不计战绩
func (p *RoomPool) abandon(r *Room) {
	for _, ref := range r.players {
		p.sessions.Release(ref)
	}

	logger.Room.Info("房间 %d 双方同时退出", r.Slot)
	p.conclude(r, models.OutcomeAbandoned, -1, [2]models.PlayerResult{models.ResultNone, models.ResultNone})
}

// timeout 空闲超时，双方回到大厅，不计战绩
func (p *RoomPool) timeout(r *Room) {
	for i := range r.players {
		p.finish(r, i, protocol.GameplayTimedOut, models.StateLobby)
	}

	logger.Room.Info("房间 %d 空闲 %d 轮，超时关闭", r.Slot, r.idleTicks)
	p.conclude(r, models.OutcomeTimeout, -1, [2]models.PlayerResult{models.ResultNone, models.ResultNone})
}

// finish 通知一方结果并切换其会话状态
func (p *RoomPool) finish(r *Room, i int, tag protocol.MessageType, next models.SessionState) {
	s, ok := p.sessions.Resolve(r.players[i])
	if !ok {
		return
	}
	s.State = next
	s.Conn.Send(protocol.Encode(tag))
}

// conclude 发布对局记录并释放房间
func (p *RoomPool) conclude(r *Room, outcome models.MatchOutcome, winner int, results [2]models.PlayerResult) {
	r.Status = models.RoomConcluding

	rec := models.MatchRecord{
		ID:        r.ID,
		RoomSlot:  r.Slot,
		Outcome:   outcome,
		Board:     r.board.String(),
		StartTime: r.StartedAt,
		EndTime:   p.now(),
	}
	if winner >= 0 {
		rec.Winner = r.names[winner]
	}
	for i := range r.players {
		stats, _ := p.store.FindByName(r.names[i])
		rec.Players = append(rec.Players, models.PlayerMatchRecord{
			Name:   r.names[i],
			Mark:   string(rune(roomMarks[i])),
			Result: results[i],
			Stats:  stats,
		})
	}
	if p.publisher != nil {
		p.publisher.Publish(rec)
	}

	r.reset()
}

func (p *RoomPool) sendBoth(r *Room, frame []byte) {
	for _, ref := range r.players {
		if s, ok := p.sessions.Resolve(ref); ok {
			s.Conn.Send(frame)
		}
	}
}

func resultFor(winner, i int) models.PlayerResult {
	if winner == i {
		return models.ResultWon
	}
	return models.ResultLost
}
