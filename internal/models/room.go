package models

// RoomStatus 房间状态
type RoomStatus string

const (
	// RoomEmpty 空闲槽位
	RoomEmpty RoomStatus = "empty"
	// RoomActive 对局进行中
	RoomActive RoomStatus = "active"
	// RoomConcluding 对局已结束，等待释放
	RoomConcluding RoomStatus = "concluding"
)

// MatchOutcome 对局结果
type MatchOutcome string

const (
	// OutcomeWin 一方连成一线
	OutcomeWin MatchOutcome = "win"
	// OutcomeTie 平局
	OutcomeTie MatchOutcome = "tie"
	// OutcomeForfeit 一方退出或断线
	OutcomeForfeit MatchOutcome = "forfeit"
	// OutcomeAbandoned 双方同时退出
	OutcomeAbandoned MatchOutcome = "abandoned"
	// OutcomeTimeout 空闲超时
	OutcomeTimeout MatchOutcome = "timeout"
)

// Decided 对局是否产生了胜负或平局（会计入战绩）
func (o MatchOutcome) Decided() bool {
	return o == OutcomeWin || o == OutcomeTie || o == OutcomeForfeit
}

// PlayerResult 单个玩家在对局中的结果
type PlayerResult string

const (
	ResultWon  PlayerResult = "won"
	ResultLost PlayerResult = "lost"
	ResultTied PlayerResult = "tied"
	ResultNone PlayerResult = "none"
)

// RoomInfo 房间视图，供状态页面使用
type RoomInfo struct {
	Slot      int        `json:"slot"`
	ID        string     `json:"id"`
	Status    RoomStatus `json:"status"`
	PlayerX   string     `json:"player_x"`
	PlayerO   string     `json:"player_o"`
	IdleTicks int        `json:"idle_ticks"`
}
