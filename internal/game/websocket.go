// websocket.go

package game

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jacl-coder/TicTacTwo-Server/internal/protocol"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

// 最大消息大小，略大于最长的帧
const maxMessageSize = 128

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 允许所有跨域请求
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsTransport WebSocket 传输，每条二进制消息是一帧
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadFrame() (protocol.Message, error) {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Game.Debug("WebSocket错误: %v", err)
			}
			return protocol.Message{}, err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		return protocol.DecodeMessage(data)
	}
}

func (t *wsTransport) WriteFrame(frame []byte) error {
	return t.conn.WriteMessage(websocket.BinaryMessage, frame)
}

func (t *wsTransport) SetWriteDeadline(d time.Time) error {
	return t.conn.SetWriteDeadline(d)
}

func (t *wsTransport) Close() error {
	t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// handleWSConnection 处理WebSocket连接，第一条消息必须是登录
func (s *GameServer) handleWSConnection(w http.ResponseWriter, r *http.Request) {
	// 升级HTTP连接为WebSocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Game.Warn("WebSocket升级失败: %v", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	t := &wsTransport{conn: conn}
	conn.SetReadDeadline(time.Now().Add(s.config.Server.LoginTimeout))
	msg, err := t.ReadFrame()
	if err == nil && msg.Type != protocol.Login {
		err = errors.New("第一条消息不是登录")
	}
	if err != nil {
		logger.Game.Info("WebSocket连接 %s 登录失败: %v", conn.RemoteAddr(), err)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.BinaryMessage, protocol.Encode(protocol.Failure))
		t.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	s.Enqueue(newPlayerConnection(t, s.config.Server.SendQueue), msg)
}
