package models

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-redis/redis/v8"
)

// RedisLeaderboard Redis排行榜管理器
type RedisLeaderboard struct {
	client redis.Cmdable
}

// NewRedisLeaderboard 创建Redis排行榜管理器
func NewRedisLeaderboard(client redis.Cmdable) *RedisLeaderboard {
	return &RedisLeaderboard{client: client}
}

// 排行榜Redis键名
const (
	LeaderboardWinsKey    = "tictactwo:leaderboard:wins"
	LeaderboardTiesKey    = "tictactwo:leaderboard:ties"
	LeaderboardWinRateKey = "tictactwo:leaderboard:winrate"

	// 玩家详细信息键前缀
	PlayerInfoPrefix = "tictactwo:player:info:"
)

// Name 结果接收者名称
func (rl *RedisLeaderboard) Name() string {
	return "redis-leaderboard"
}

// RecordMatch 根据对局结算后的战绩更新排行榜；未分胜负的对局不影响排行榜
func (rl *RedisLeaderboard) RecordMatch(ctx context.Context, rec MatchRecord) error {
	if !rec.Outcome.Decided() {
		return nil
	}

	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range rec.Players {
			if p.Stats.Name == "" {
				continue
			}
			for _, t := range []LeaderboardType{LeaderboardWins, LeaderboardTies, LeaderboardWinRate} {
				pipe.ZAdd(ctx, LeaderboardKey(t), &redis.Z{
					Score:  ScoreOf(p.Stats, t),
					Member: p.Stats.Name,
				})
			}

			data, err := json.Marshal(NewLeaderboardEntry(p.Stats))
			if err != nil {
				return err
			}
			pipe.Set(ctx, PlayerInfoPrefix+p.Stats.Name, data, 0)
		}
		return nil
	})
	return err
}

// GetLeaderboard 获取排行榜
func (rl *RedisLeaderboard) GetLeaderboard(ctx context.Context, t LeaderboardType, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		return []LeaderboardEntry{}, nil
	}

	// 从Redis获取排行榜（按分数降序）
	members, err := rl.client.ZRevRangeWithScores(ctx, LeaderboardKey(t), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(members))
	for i, member := range members {
		name, ok := member.Member.(string)
		if !ok {
			continue
		}

		entry, err := rl.getPlayerInfo(ctx, name)
		if err != nil {
			entry = &LeaderboardEntry{Name: name}
		}

		// 更新分数和排名
		entry.Score = member.Score
		entry.Rank = i + 1
		entries = append(entries, *entry)
	}

	return entries, nil
}

// GetPlayerRank 获取玩家排名，不在排行榜中时返回 -1
func (rl *RedisLeaderboard) GetPlayerRank(ctx context.Context, name string, t LeaderboardType) (int, error) {
	rank, err := rl.client.ZRevRank(ctx, LeaderboardKey(t), name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return -1, nil
		}
		return -1, err
	}

	return int(rank) + 1, nil // Redis排名从0开始，转换为从1开始
}

// Rebuild 用玩家记录重建排行榜，启动时调用以同步数据文件中的战绩
func (rl *RedisLeaderboard) Rebuild(ctx context.Context, players []PlayerRecord) error {
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, LeaderboardWinsKey, LeaderboardTiesKey, LeaderboardWinRateKey)
		for _, p := range players {
			for _, t := range []LeaderboardType{LeaderboardWins, LeaderboardTies, LeaderboardWinRate} {
				pipe.ZAdd(ctx, LeaderboardKey(t), &redis.Z{Score: ScoreOf(p, t), Member: p.Name})
			}
			data, err := json.Marshal(NewLeaderboardEntry(p))
			if err != nil {
				return err
			}
			pipe.Set(ctx, PlayerInfoPrefix+p.Name, data, 0)
		}
		return nil
	})
	return err
}

// LeaderboardKey 获取排行榜键名
func LeaderboardKey(t LeaderboardType) string {
	switch t {
	case LeaderboardTies:
		return LeaderboardTiesKey
	case LeaderboardWinRate:
		return LeaderboardWinRateKey
	default:
		return LeaderboardWinsKey
	}
}

// getPlayerInfo 从Redis获取玩家信息
func (rl *RedisLeaderboard) getPlayerInfo(ctx context.Context, name string) (*LeaderboardEntry, error) {
	data, err := rl.client.Get(ctx, PlayerInfoPrefix+name).Bytes()
	if err != nil {
		return nil, err
	}

	var entry LeaderboardEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}
