package db

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/TicTacTwo-Server/config"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

var (
	// RedisClient 全局Redis客户端实例，未启用排行榜时为 nil
	RedisClient *redis.Client
)

// InitRedis 初始化Redis连接
func InitRedis(cfg config.RedisConfig) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		RedisClient.Close()
		RedisClient = nil
		return fmt.Errorf("Redis连接失败: %w", err)
	}

	logger.Server.Info("成功连接到Redis服务器 %s", cfg.GetRedisAddr())
	return nil
}

// CloseRedis 关闭Redis连接
func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Server.Warn("关闭Redis连接时发生错误: %v", err)
			return
		}
		RedisClient = nil
		logger.Server.Info("Redis连接已关闭")
	}
}
