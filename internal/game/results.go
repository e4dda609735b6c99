package game

import (
	"context"
	"sync"
	"time"

	"github.com/jacl-coder/TicTacTwo-Server/internal/models"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

// ResultSink 对局结果的接收者（排行榜、对局归档）
type ResultSink interface {
	Name() string
	RecordMatch(ctx context.Context, rec models.MatchRecord) error
}

// MatchPublisher 房间结束时发布对局记录，不能阻塞主循环
type MatchPublisher interface {
	Publish(rec models.MatchRecord) bool
}

// ResultPublisher 用缓冲通道和后台协程把对局记录分发给各接收者
type ResultPublisher struct {
	queue   chan models.MatchRecord
	sinks   []ResultSink
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewResultPublisher 创建结果发布器
func NewResultPublisher(queueSize int, sinks ...ResultSink) *ResultPublisher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ResultPublisher{
		queue:   make(chan models.MatchRecord, queueSize),
		sinks:   sinks,
		timeout: 5 * time.Second,
	}
}

// AddSink 添加接收者，必须在 Start 之前调用
func (p *ResultPublisher) AddSink(s ResultSink) {
	p.sinks = append(p.sinks, s)
}

// Start 启动后台协程
func (p *ResultPublisher) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop 停止接收新记录，处理完队列中的记录后返回
func (p *ResultPublisher) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// Publish 非阻塞地放入队列；队列已满或已停止时丢弃
func (p *ResultPublisher) Publish(rec models.MatchRecord) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}

	select {
	case p.queue <- rec:
		return true
	default:
		logger.Game.Warn("对局结果队列已满，丢弃对局 %s", rec.ID)
		return false
	}
}

func (p *ResultPublisher) run() {
	defer p.wg.Done()
	for rec := range p.queue {
		for _, sink := range p.sinks {
			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			if err := sink.RecordMatch(ctx, rec); err != nil {
				logger.Game.Warn("%s 记录对局 %s 失败: %v", sink.Name(), rec.ID, err)
			}
			cancel()
		}
	}
}
