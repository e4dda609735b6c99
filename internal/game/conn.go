// conn.go

package game

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jacl-coder/TicTacTwo-Server/internal/protocol"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

const (
	// 写入超时时间
	writeWait = 10 * time.Second

	// 接收队列长度，读协程在队列满时阻塞
	receiveQueue = 8
)

var (
	// ErrConnClosed 连接已关闭
	ErrConnClosed = errors.New("连接已关闭")
	// ErrSendQueueFull 发送队列已满，连接被关闭
	ErrSendQueueFull = errors.New("发送队列已满")
)

// PlayerConn 玩家连接，主循环通过它非阻塞地收发消息
type PlayerConn interface {
	ID() string
	// Poll 非阻塞地取出一条消息；没有消息时 ok 为 false
	Poll() (msg protocol.Message, ok bool, err error)
	Send(frame []byte) error
	Close() error
	RemoteAddr() string
}

// frameTransport 底层传输：TCP 字节流或 WebSocket
type frameTransport interface {
	ReadFrame() (protocol.Message, error)
	WriteFrame(frame []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
	RemoteAddr() string
}

// inbound 读协程交给主循环的消息
type inbound struct {
	msg protocol.Message
	err error
}

// PlayerConnection 玩家连接
type PlayerConnection struct {
	id        string
	transport frameTransport

	// 通信通道
	send    chan []byte
	receive chan inbound

	// 连接状态
	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
	readErr   error
}

// newPlayerConnection 创建连接并启动读写协程
func newPlayerConnection(t frameTransport, sendQueue int) *PlayerConnection {
	if sendQueue <= 0 {
		sendQueue = 64
	}
	c := &PlayerConnection{
		id:        uuid.New().String(),
		transport: t,
		send:      make(chan []byte, sendQueue),
		receive:   make(chan inbound, receiveQueue),
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}

	go c.readPump()
	go c.writePump()
	return c
}

// ID 连接ID
func (c *PlayerConnection) ID() string {
	return c.id
}

// RemoteAddr 远端地址
func (c *PlayerConnection) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// Poll 非阻塞地取出一条消息
func (c *PlayerConnection) Poll() (protocol.Message, bool, error) {
	if c.readErr != nil {
		return protocol.Message{}, false, c.readErr
	}

	select {
	case in := <-c.receive:
		if in.err != nil {
			c.readErr = in.err
			return in.msg, false, in.err
		}
		return in.msg, true, nil
	default:
	}

	select {
	case <-c.closing:
		return protocol.Message{}, false, ErrConnClosed
	default:
		return protocol.Message{}, false, nil
	}
}

// Send 把消息放入发送队列；队列已满时关闭连接
func (c *PlayerConnection) Send(frame []byte) error {
	select {
	case <-c.closing:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		// 通道已满，关闭连接
		logger.Game.Warn("连接 %s 发送队列已满，关闭连接", c.RemoteAddr())
		c.Close()
		return ErrSendQueueFull
	}
}

// Close 关闭连接；已入队的消息会先发送完
func (c *PlayerConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
	return nil
}

// Done 写协程退出、底层连接关闭后关闭
func (c *PlayerConnection) Done() <-chan struct{} {
	return c.done
}

// readPump 从连接读取消息
func (c *PlayerConnection) readPump() {
	for {
		msg, err := c.transport.ReadFrame()
		select {
		case c.receive <- inbound{msg: msg, err: err}:
		case <-c.closing:
			return
		}
		if err != nil {
			return
		}
	}
}

// writePump 向连接写入消息
func (c *PlayerConnection) writePump() {
	defer func() {
		c.transport.Close()
		close(c.done)
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(frame); err != nil {
				c.Close()
				return
			}
		case <-c.closing:
			// 发送剩余消息后关闭
			for {
				select {
				case frame := <-c.send:
					if err := c.write(frame); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *PlayerConnection) write(frame []byte) error {
	c.transport.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.transport.WriteFrame(frame); err != nil {
		logger.Game.Debug("写入 %s 失败: %v", c.RemoteAddr(), err)
		return err
	}
	return nil
}

// tcpTransport TCP 字节流，消息长度由标签决定
type tcpTransport struct {
	conn net.Conn
}

func (t *tcpTransport) ReadFrame() (protocol.Message, error) {
	return protocol.ReadMessage(t.conn)
}

func (t *tcpTransport) WriteFrame(frame []byte) error {
	_, err := t.conn.Write(frame)
	return err
}

func (t *tcpTransport) SetWriteDeadline(d time.Time) error {
	return t.conn.SetWriteDeadline(d)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// NewTCPConnection 包装已完成登录读取的 TCP 连接
func NewTCPConnection(conn net.Conn, sendQueue int) *PlayerConnection {
	return newPlayerConnection(&tcpTransport{conn: conn}, sendQueue)
}
