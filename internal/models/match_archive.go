package models

import (
	"context"
	"database/sql"
	"fmt"
)

// MatchArchive PostgreSQL对局归档
type MatchArchive struct {
	db *sql.DB
}

// NewMatchArchive 创建对局归档
func NewMatchArchive(db *sql.DB) *MatchArchive {
	return &MatchArchive{db: db}
}

// Name 结果接收者名称
func (a *MatchArchive) Name() string {
	return "postgres-archive"
}

// RecordMatch 保存对局记录及双方的玩家记录
func (a *MatchArchive) RecordMatch(ctx context.Context, rec MatchRecord) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开始事务失败: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO match_records (id, room_slot, outcome, winner, board, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.RoomSlot, string(rec.Outcome), sql.NullString{String: rec.Winner, Valid: rec.Winner != ""},
		rec.Board, rec.StartTime, rec.EndTime,
	)
	if err != nil {
		return fmt.Errorf("保存对局记录失败: %w", err)
	}

	for _, p := range rec.Players {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO player_match_records (match_id, player_name, mark, result, games_won, games_lost, games_tied)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, p.Name, p.Mark, string(p.Result),
			int64(p.Stats.GamesWon), int64(p.Stats.GamesLost), int64(p.Stats.GamesTied),
		)
		if err != nil {
			return fmt.Errorf("保存玩家对局记录失败: %w", err)
		}
	}

	return tx.Commit()
}

// RecentMatches 查询玩家最近的对局，按结束时间倒序
func (a *MatchArchive) RecentMatches(ctx context.Context, name string, limit int) ([]MatchRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT m.id, m.room_slot, m.outcome, COALESCE(m.winner, ''), m.board, m.start_time, m.end_time
		FROM match_records m
		JOIN player_match_records p ON p.match_id = m.id
		WHERE p.player_name = $1
		ORDER BY m.end_time DESC
		LIMIT $2`, name, limit)
	if err != nil {
		return nil, fmt.Errorf("查询对局记录失败: %w", err)
	}
	defer rows.Close()

	matches := make([]MatchRecord, 0, limit)
	index := make(map[string]int)
	for rows.Next() {
		var m MatchRecord
		var outcome string
		if err := rows.Scan(&m.ID, &m.RoomSlot, &outcome, &m.Winner, &m.Board, &m.StartTime, &m.EndTime); err != nil {
			return nil, err
		}
		m.Outcome = MatchOutcome(outcome)
		index[m.ID] = len(matches)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for id, i := range index {
		players, err := a.matchPlayers(ctx, id)
		if err != nil {
			return nil, err
		}
		matches[i].Players = players
	}

	return matches, nil
}

// matchPlayers 查询一场对局的双方记录
func (a *MatchArchive) matchPlayers(ctx context.Context, matchID string) ([]PlayerMatchRecord, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT player_name, mark, result, games_won, games_lost, games_tied
		FROM player_match_records
		WHERE match_id = $1
		ORDER BY mark DESC`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []PlayerMatchRecord
	for rows.Next() {
		var p PlayerMatchRecord
		var result string
		var won, lost, tied int64
		if err := rows.Scan(&p.Name, &p.Mark, &result, &won, &lost, &tied); err != nil {
			return nil, err
		}
		p.Result = PlayerResult(result)
		p.Stats = PlayerRecord{Name: p.Name, GamesWon: uint32(won), GamesLost: uint32(lost), GamesTied: uint32(tied)}
		players = append(players, p)
	}
	return players, rows.Err()
}
