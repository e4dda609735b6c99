// stats.go

package models

import (
	"time"
)

// MatchRecord 对局记录
type MatchRecord struct {
	ID        string              `json:"id"`
	RoomSlot  int                 `json:"room_slot"`
	Outcome   MatchOutcome        `json:"outcome"`
	Winner    string              `json:"winner,omitempty"`
	Board     string              `json:"board"` // 9个字符，行优先，空格子为 '.'
	StartTime time.Time           `json:"start_time"`
	EndTime   time.Time           `json:"end_time"`
	Players   []PlayerMatchRecord `json:"players"`
}

// Duration 对局时长
func (m MatchRecord) Duration() time.Duration {
	return m.EndTime.Sub(m.StartTime)
}

// PlayerMatchRecord 玩家对局记录，Stats 为结算后的战绩
type PlayerMatchRecord struct {
	Name   string       `json:"name"`
	Mark   string       `json:"mark"`
	Result PlayerResult `json:"result"`
	Stats  PlayerRecord `json:"stats"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Name      string  `json:"name"`
	GamesWon  uint32  `json:"games_won"`
	GamesLost uint32  `json:"games_lost"`
	GamesTied uint32  `json:"games_tied"`
	WinRate   float64 `json:"win_rate"`
	Score     float64 `json:"score"`
	Rank      int     `json:"rank"`
}

// NewLeaderboardEntry 由玩家记录构造排行榜条目
func NewLeaderboardEntry(p PlayerRecord) LeaderboardEntry {
	return LeaderboardEntry{
		Name:      p.Name,
		GamesWon:  p.GamesWon,
		GamesLost: p.GamesLost,
		GamesTied: p.GamesTied,
		WinRate:   p.WinRate(),
	}
}

// LeaderboardType 排行榜类型
type LeaderboardType string

const (
	// LeaderboardWins 胜场排行榜
	LeaderboardWins LeaderboardType = "wins"
	// LeaderboardTies 平局排行榜
	LeaderboardTies LeaderboardType = "ties"
	// LeaderboardWinRate 胜率排行榜
	LeaderboardWinRate LeaderboardType = "winrate"
)

// ParseLeaderboardType 解析排行榜类型，未知类型返回 false
func ParseLeaderboardType(s string) (LeaderboardType, bool) {
	switch LeaderboardType(s) {
	case LeaderboardWins, "":
		return LeaderboardWins, true
	case LeaderboardTies:
		return LeaderboardTies, true
	case LeaderboardWinRate:
		return LeaderboardWinRate, true
	}
	return "", false
}

// ScoreOf 返回玩家在指定排行榜上的分数
func ScoreOf(p PlayerRecord, t LeaderboardType) float64 {
	switch t {
	case LeaderboardTies:
		return float64(p.GamesTied)
	case LeaderboardWinRate:
		return p.WinRate()
	default:
		return float64(p.GamesWon)
	}
}

// 注意：表结构定义已移至 pkg/db/schema.go 统一管理
