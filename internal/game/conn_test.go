package game

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacl-coder/TicTacTwo-Server/internal/protocol"
)

// pollWait 轮询直到收到消息或出错
func pollWait(t *testing.T, c *PlayerConnection) (protocol.Message, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msg, ok, err := c.Poll()
		if ok || err != nil {
			return msg, err
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("等待消息超时")
	return protocol.Message{}, nil
}

func TestPlayerConnection_PollReceivesFrames(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := NewTCPConnection(server, 4)
	defer c.Close()

	_, ok, err := c.Poll()
	require.NoError(t, err)
	assert.False(t, ok)

	go func() {
		client.Write(protocol.NewMove(2, 1))
		client.Write(protocol.Encode(protocol.RequestLobby))
	}()

	msg, err := pollWait(t, c)
	require.NoError(t, err)
	col, row, err := msg.Move()
	require.NoError(t, err)
	assert.Equal(t, 2, col)
	assert.Equal(t, 1, row)

	msg, err = pollWait(t, c)
	require.NoError(t, err)
	assert.Equal(t, protocol.RequestLobby, msg.Type)
}

func TestPlayerConnection_SendWritesFrame(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := NewTCPConnection(server, 4)
	defer c.Close()

	require.NoError(t, c.Send(protocol.Encode(protocol.YouAreX)))

	buf := make([]byte, 1)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := io.ReadFull(client, buf)
	require.NoError(t, err)
	assert.Equal(t, byte(protocol.YouAreX), buf[0])
}

func TestPlayerConnection_CloseFlushesQueue(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := NewTCPConnection(server, 4)

	require.NoError(t, c.Send(protocol.Encode(protocol.Failure)))
	require.NoError(t, c.Send(protocol.Encode(protocol.GameplayTimedOut)))
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send(protocol.Encode(protocol.YouWin)), ErrConnClosed)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := io.ReadAll(client)
	// 对端关闭后读到 EOF，ReadAll 不返回错误
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(protocol.Failure), byte(protocol.GameplayTimedOut)}, got)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("连接未关闭")
	}
}

func TestPlayerConnection_ReadErrorSticks(t *testing.T) {
	server, client := net.Pipe()
	c := NewTCPConnection(server, 4)
	defer c.Close()

	client.Close()

	_, err := pollWait(t, c)
	assert.True(t, errors.Is(err, io.EOF), "err = %v", err)
	_, ok, err := c.Poll()
	assert.False(t, ok)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPlayerConnection_UnknownTag(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	c := NewTCPConnection(server, 4)
	defer c.Close()

	go client.Write([]byte{'Z'})

	msg, err := pollWait(t, c)
	assert.ErrorIs(t, err, protocol.ErrUnknownTag)
	assert.Equal(t, protocol.MessageType('Z'), msg.Type)
}
