package game

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jacl-coder/TicTacTwo-Server/config"
	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/internal/protocol"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

// pendingLogin 已读到登录消息、等待主循环处理的连接
type pendingLogin struct {
	conn PlayerConn
	msg  protocol.Message
}

// GameServer 游戏服务器：TCP/WebSocket 接入和单线程的轮询主循环
type GameServer struct {
	config *config.Config

	// mu 保护会话表和房间池，主循环每轮持有
	mu       sync.Mutex
	sessions *SessionTable
	rooms    *RoomPool
	lobby    *Lobby
	ticks    uint64

	listener   net.Listener
	httpServer *http.Server
	logins     chan pendingLogin

	// 关闭信号
	shutdown  chan struct{}
	wg        sync.WaitGroup
	isRunning bool
}

// NewGameServer 创建新的游戏服务器
func NewGameServer(cfg *config.Config, store PlayerStore, publisher MatchPublisher) *GameServer {
	sessions := NewSessionTable(cfg.Server.MaxPlayers)
	rooms := NewRoomPool(cfg.Server.MaxRoomCount, cfg.Server.IdleTickLimit, sessions, store, publisher)

	return &GameServer{
		config:   cfg,
		sessions: sessions,
		rooms:    rooms,
		lobby:    NewLobby(sessions, rooms, store),
		logins:   make(chan pendingLogin, cfg.Server.LoginQueue),
		shutdown: make(chan struct{}),
	}
}

// Start 监听端口并启动主循环；端口无法监听时返回错误
func (s *GameServer) Start() error {
	if s.isRunning {
		return fmt.Errorf("服务器已经在运行")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Server.GamePort))
	if err != nil {
		return fmt.Errorf("监听游戏端口 %d 失败: %w", s.config.Server.GamePort, err)
	}
	s.listener = ln

	wsLn, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Server.WSPort))
	if err != nil {
		ln.Close()
		return fmt.Errorf("监听WebSocket端口 %d 失败: %w", s.config.Server.WSPort, err)
	}

	// 初始化HTTP服务器
	s.httpServer = &http.Server{
		Handler:           s.createHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Server.Info("WebSocket接入启动，监听端口: %d", s.config.Server.WSPort)
		if err := s.httpServer.Serve(wsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Server.Error("WebSocket服务器错误: %v", err)
		}
	}()

	s.wg.Add(2)
	go s.acceptLoop()
	go s.run()

	logger.Server.Info("游戏服务器启动，监听端口: %d，最多 %d 名玩家，%d 个房间",
		s.config.Server.GamePort, s.sessions.Capacity(), s.rooms.Capacity())
	s.isRunning = true
	return nil
}

// Stop 停止游戏服务器；进行中的对局不会收到通知
func (s *GameServer) Stop() error {
	if !s.isRunning {
		return nil
	}

	// 发送关闭信号
	close(s.shutdown)
	s.listener.Close()

	// 关闭HTTP服务器
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Server.Warn("WebSocket服务器关闭错误: %v", err)
	}

	s.wg.Wait()

	// 关闭所有连接
	s.mu.Lock()
	s.sessions.ForEach(func(sess *Session) {
		s.sessions.Release(sess.Ref)
	})
	s.mu.Unlock()

drain:
	for {
		select {
		case p := <-s.logins:
			p.conn.Close()
		default:
			break drain
		}
	}

	s.isRunning = false
	logger.Server.Info("游戏服务器已停止")
	return nil
}

// Addr TCP 监听地址，未启动时为 nil
func (s *GameServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// createHandler 创建HTTP处理器
func (s *GameServer) createHandler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket 连接端点
	mux.HandleFunc("/ws", s.handleWSConnection)

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return mux
}

// acceptLoop 接受TCP连接，每个连接在单独的协程中读取登录消息
func (s *GameServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			logger.Server.Warn("接受连接失败: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		go s.handshake(conn)
	}
}

// handshake 在超时时间内读取登录消息
func (s *GameServer) handshake(conn net.Conn) {
	conn.SetReadDeadline(time.Now().Add(s.config.Server.LoginTimeout))
	msg, err := protocol.ReadMessage(conn)
	if err == nil && msg.Type != protocol.Login {
		err = fmt.Errorf("第一条消息是 %s", msg.Type)
	}
	if err != nil {
		logger.Server.Info("连接 %s 登录失败: %v", conn.RemoteAddr(), err)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.Write(protocol.Encode(protocol.Failure))
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	s.Enqueue(NewTCPConnection(conn, s.config.Server.SendQueue), msg)
}

// Enqueue 把已读到登录消息的连接交给主循环；队列满时拒绝
func (s *GameServer) Enqueue(conn PlayerConn, msg protocol.Message) bool {
	select {
	case <-s.shutdown:
		conn.Close()
		return false
	default:
	}

	select {
	case s.logins <- pendingLogin{conn: conn, msg: msg}:
		return true
	default:
		logger.Server.Warn("登录队列已满，拒绝 %s", conn.RemoteAddr())
		reject(conn, protocol.Failure)
		return false
	}
}

// run 主循环
func (s *GameServer) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Server.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-s.shutdown:
			return
		}
	}
}

// Tick 执行一轮：处理至多一个新登录，然后是大厅会话，最后是房间
func (s *GameServer) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks++

	select {
	case p := <-s.logins:
		s.lobby.Admit(p.conn, p.msg)
	default:
	}

	s.lobby.ServiceSessions()
	s.rooms.TickAll()
}

// ActivePlayers 在线玩家列表
func (s *GameServer) ActivePlayers() []models.ActivePlayer {
	s.mu.Lock()
	defer s.mu.Unlock()

	players := make([]models.ActivePlayer, 0, s.sessions.Len())
	s.sessions.ForEach(func(sess *Session) {
		players = append(players, models.ActivePlayer{
			Slot:       sess.Ref.Slot,
			Name:       sess.Name,
			Avatar:     sess.Avatar,
			State:      sess.State,
			RemoteAddr: sess.Conn.RemoteAddr(),
		})
	})
	return players
}

// ActiveRooms 进行中的房间列表
func (s *GameServer) ActiveRooms() []models.RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.Info()
}

// Stats 服务器运行统计
func (s *GameServer) Stats() (players, rooms int, ticks uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Len(), s.rooms.Active(), s.ticks
}
