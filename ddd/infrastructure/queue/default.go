package queue

import (
	"sync"

	"media-transcode-service/pkg/config"
)

var (
	defaultQueueOnce sync.Once
	defaultQueue     *MemoryJobQueue
)

// DefaultJobQueue 进程级共享作业队列。HTTP入队端与Worker消费端
// 必须使用同一实例。
func DefaultJobQueue() *MemoryJobQueue {
	defaultQueueOnce.Do(func() {
		capacity := 100
		if cfg := config.GetGlobalConfig(); cfg != nil {
			capacity = cfg.Queue.Capacity
		}
		defaultQueue = NewMemoryJobQueue(capacity)
	})
	return defaultQueue
}

// CloseDefaultJobQueue 关闭共享队列
func CloseDefaultJobQueue() {
	if defaultQueue != nil {
		_ = defaultQueue.Close()
	}
}
