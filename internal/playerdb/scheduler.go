package playerdb

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jacl-coder/TicTacTwo-Server/pkg/logger"
)

// Snapshotter 定时保存玩家数据
type Snapshotter struct {
	sched gocron.Scheduler
	store *Store
}

// StartSnapshots 每隔 interval 保存一次；保存失败只记录日志，由下一次保存重试
func StartSnapshots(store *Store, interval time.Duration) (*Snapshotter, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("创建定时任务失败: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := store.Save(); err != nil {
				logger.Store.Error("定时保存失败: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("注册保存任务失败: %w", err)
	}

	sched.Start()
	logger.Store.Info("玩家数据每 %v 保存一次", interval)
	return &Snapshotter{sched: sched, store: store}, nil
}

// Stop 停止定时任务，等待正在执行的保存完成
func (s *Snapshotter) Stop() error {
	return s.sched.Shutdown()
}
