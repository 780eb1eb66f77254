package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"media-transcode-service/ddd/domain/vo"
)

// VideoJob 一次转码作业的最小描述，跨队列传递。
type VideoJob struct {
	VideoUUID  string
	SourceURL  string
	Bucket     vo.StorageBucket
	EnqueuedAt time.Time
}

// ErrQueueFull 队列已满，调用方应返回背压信号而不是阻塞。
var ErrQueueFull = fmt.Errorf("job queue is full")

// JobQueue 作业队列接口
type JobQueue interface {
	// Enqueue 入队作业，队列满时立即返回ErrQueueFull。
	Enqueue(ctx context.Context, job *VideoJob) error

	// Dequeue 出队作业（阻塞直到有作业或ctx取消）
	Dequeue(ctx context.Context) (*VideoJob, error)

	// Size 获取当前队列深度
	Size() int

	// Capacity 获取队列容量
	Capacity() int

	// Close 关闭队列
	Close() error
}

// MemoryJobQueue 进程内有界作业队列，单消费者。
type MemoryJobQueue struct {
	queue    chan *VideoJob
	capacity int
	closed   bool
	mu       sync.RWMutex
}

// NewMemoryJobQueue 创建内存作业队列
func NewMemoryJobQueue(capacity int) *MemoryJobQueue {
	if capacity <= 0 {
		capacity = 100
	}
	return &MemoryJobQueue{
		queue:    make(chan *VideoJob, capacity),
		capacity: capacity,
	}
}

// Enqueue 入队作业
func (q *MemoryJobQueue) Enqueue(ctx context.Context, job *VideoJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("job queue is closed")
	}
	if job == nil {
		return fmt.Errorf("job cannot be nil")
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	select {
	case q.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Dequeue 出队作业（阻塞）
func (q *MemoryJobQueue) Dequeue(ctx context.Context) (*VideoJob, error) {
	select {
	case job, ok := <-q.queue:
		if !ok {
			return nil, fmt.Errorf("job queue is closed")
		}
		return job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size 获取队列当前深度
func (q *MemoryJobQueue) Size() int {
	return len(q.queue)
}

// Capacity 获取队列容量
func (q *MemoryJobQueue) Capacity() int {
	return q.capacity
}

// Close 关闭队列
func (q *MemoryJobQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.queue)
	return nil
}
