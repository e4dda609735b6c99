// main.go

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jacl-coder/TicTacTwo-Server/config"
	"github.com/jacl-coder/TicTacTwo-Server/internal/game"
	"github.com/jacl-coder/TicTacTwo-Server/internal/gateway"
	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/internal/playerdb"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/db"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/storage"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logger.Server.Warn("未找到 .env 文件，直接读取环境变量")
	}

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		logger.Server.Fatal("加载配置失败: %v", err)
	}
	cfg := &config.GlobalConfig

	if level, ok := logger.ParseLevel(cfg.Server.LogLevel); ok {
		logger.SetGlobalLogLevel(level)
	} else {
		logger.Server.Warn("未知的日志级别 %q，使用 INFO", cfg.Server.LogLevel)
	}
	if cfg.Server.Debug {
		logger.SetGlobalLogLevel(logger.DEBUG)
	}

	// 玩家数据文件
	store, err := playerdb.Open(cfg.Storage.PlayerFile, cfg.Storage.BackupFile)
	if err != nil {
		logger.Server.Fatal("打开玩家数据文件失败: %v", err)
	}
	logger.Server.Info("已加载 %d 条玩家记录", store.Len())

	if cfg.Backup.S3.Enabled {
		uploader, err := storage.NewS3SnapshotUploader(context.Background(), cfg.Backup.S3)
		if err != nil {
			logger.Server.Warn("初始化S3备份失败，跳过异地备份: %v", err)
		} else {
			store.AddMirror(uploader)
		}
	}

	publisher := game.NewResultPublisher(64)
	var (
		leaderboard gateway.Leaderboard
		archive     gateway.MatchHistory
	)

	// 初始化数据库连接
	if cfg.Database.Enabled {
		if err := db.InitPostgres(cfg.Database); err != nil {
			logger.Server.Warn("初始化PostgreSQL失败，对局归档不可用: %v", err)
		} else {
			a := models.NewMatchArchive(db.DB)
			publisher.AddSink(a)
			archive = a
		}
	}

	// 初始化Redis连接
	if cfg.Redis.Enabled {
		if err := db.InitRedis(cfg.Redis); err != nil {
			logger.Server.Warn("初始化Redis失败，排行榜由玩家文件计算: %v", err)
		} else {
			lb := models.NewRedisLeaderboard(db.RedisClient)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := lb.Rebuild(ctx, store.All()); err != nil {
				logger.Server.Warn("重建排行榜失败: %v", err)
			}
			cancel()
			publisher.AddSink(lb)
			leaderboard = lb
		}
	}

	publisher.Start()

	snapshots, err := playerdb.StartSnapshots(store, cfg.Storage.SaveInterval)
	if err != nil {
		logger.Server.Fatal("启动定时保存失败: %v", err)
	}

	// 启动游戏服务器
	server := game.NewGameServer(cfg, store, publisher)
	if err := server.Start(); err != nil {
		logger.Server.Fatal("启动游戏服务器失败: %v", err)
	}

	// 启动状态网关
	gw := gateway.NewGateway(cfg, server, store, leaderboard, archive)
	if err := gw.Start(); err != nil {
		logger.Server.Error("启动状态网关失败: %v", err)
	}

	logger.Server.Info("所有服务已启动")

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	sig := <-sigChan

	logger.Server.Info("接收到信号 %v，正在关闭服务器...", sig)

	if err := snapshots.Stop(); err != nil {
		logger.Server.Warn("停止定时保存失败: %v", err)
	}
	if err := gw.Stop(); err != nil {
		logger.Server.Warn("关闭状态网关失败: %v", err)
	}
	if err := server.Stop(); err != nil {
		logger.Server.Warn("关闭游戏服务器失败: %v", err)
	}
	publisher.Stop()

	if err := store.Save(); err != nil {
		logger.Server.Error("最终保存失败: %v", err)
	}

	db.CloseRedis()
	db.Close()

	logger.Server.Info("服务器已安全关闭")
}
