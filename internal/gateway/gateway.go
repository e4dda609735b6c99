package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jacl-coder/TicTacTwo-Server/config"
	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

// ServerDirectory 游戏服务器的在线视图
type ServerDirectory interface {
	ActivePlayers() []models.ActivePlayer
	ActiveRooms() []models.RoomInfo
	Stats() (players, rooms int, ticks uint64)
}

// PlayerDirectory 玩家战绩存储的只读视图
type PlayerDirectory interface {
	FindByName(name string) (models.PlayerRecord, bool)
	All() []models.PlayerRecord
}

// Leaderboard 排行榜（Redis）
type Leaderboard interface {
	GetLeaderboard(ctx context.Context, t models.LeaderboardType, limit int) ([]models.LeaderboardEntry, error)
	GetPlayerRank(ctx context.Context, name string, t models.LeaderboardType) (int, error)
}

// MatchHistory 对局归档（PostgreSQL）
type MatchHistory interface {
	RecentMatches(ctx context.Context, name string, limit int) ([]models.MatchRecord, error)
}

// Gateway 状态网关：只读的HTTP接口
type Gateway struct {
	config     *config.Config
	server     ServerDirectory
	players    *PlayersHandler
	stats      *StatsHandler
	limiter    *RateLimiter
	httpServer *http.Server
	listener   net.Listener
	isRunning  bool
}

// NewGateway 创建新的网关；leaderboard 和 archive 可以为 nil
func NewGateway(cfg *config.Config, server ServerDirectory, store PlayerDirectory, leaderboard Leaderboard, archive MatchHistory) *Gateway {
	return &Gateway{
		config:  cfg,
		server:  server,
		players: NewPlayersHandler(server, store),
		stats:   NewStatsHandler(store, leaderboard, archive),
		limiter: NewRateLimiter(60),
	}
}

// Start 启动网关
func (g *Gateway) Start() error {
	if g.isRunning {
		return fmt.Errorf("网关已经在运行")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", g.config.Server.StatusPort))
	if err != nil {
		return fmt.Errorf("监听状态端口 %d 失败: %w", g.config.Server.StatusPort, err)
	}
	g.listener = ln

	// 初始化HTTP服务器
	g.httpServer = &http.Server{
		Handler:           g.createHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Gateway.Info("状态网关启动，监听端口: %d", g.config.Server.StatusPort)
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Gateway.Error("HTTP服务器错误: %v", err)
		}
	}()

	g.isRunning = true
	return nil
}

// Stop 停止网关
func (g *Gateway) Stop() error {
	if !g.isRunning {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := g.httpServer.Shutdown(ctx)
	g.limiter.Stop()

	g.isRunning = false
	logger.Gateway.Info("状态网关已停止")
	return err
}

// Addr 监听地址
func (g *Gateway) Addr() net.Addr {
	if g.listener == nil {
		return nil
	}
	return g.listener.Addr()
}

// createHandler 创建HTTP处理器
func (g *Gateway) createHandler() http.Handler {
	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	g.players.RegisterHandlers(mux)
	g.stats.RegisterHandlers(mux)

	return g.applyMiddleware(mux)
}

// applyMiddleware 应用中间件
func (g *Gateway) applyMiddleware(handler http.Handler) http.Handler {
	// 按顺序应用中间件（从外到内）
	handler = g.limiter.Middleware(handler)
	handler = NewSecurityMiddleware().Middleware(handler)
	handler = NewLoggingMiddleware().Middleware(handler)
	return handler
}
