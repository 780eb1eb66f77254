package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"media-transcode-service/ddd/domain/gateway"
	"media-transcode-service/ddd/domain/repo"
	"media-transcode-service/ddd/domain/service"
	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/ddd/infrastructure/queue"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/errno"
	"media-transcode-service/pkg/logger"
)

// TranscodeWorker 转码工作器接口
type TranscodeWorker interface {
	// Start 启动工作器
	Start(ctx context.Context) error

	// Stop 停止工作器
	Stop() error

	// IsRunning 检查工作器是否运行中
	IsRunning() bool

	// GetStats 获取工作器统计信息
	GetStats() WorkerStats
}

// WorkerStats 工作器统计信息
type WorkerStats struct {
	ProcessedJobs  uint64    `json:"processed_jobs"`
	SuccessfulJobs uint64    `json:"successful_jobs"`
	FailedJobs     uint64    `json:"failed_jobs"`
	SkippedJobs    uint64    `json:"skipped_jobs"`
	ReclaimedJobs  uint64    `json:"reclaimed_jobs"`
	QueueDepth     int       `json:"queue_depth"`
	Running        bool      `json:"running"`
	StartTime      time.Time `json:"start_time"`
	LastJobTime    time.Time `json:"last_job_time"`
}

// transcodeWorkerImpl 转码工作器。三个后台循环：
// 队列消费（延迟触发路径）、数据库轮询（独立Worker路径）、
// 过期租约回收。作业本身每次只执行一个。
type transcodeWorkerImpl struct {
	id           string
	jobQueue     queue.JobQueue
	transcodeSvc service.TranscodeService
	videoRepo    repo.VideoRecordRepository
	publisher    gateway.TranscodeEventPublisher
	cfg          *config.Config

	running bool
	cancel  context.CancelFunc
	stats   WorkerStats
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

// NewTranscodeWorker 创建转码工作器
func NewTranscodeWorker(
	id string,
	jobQueue queue.JobQueue,
	transcodeSvc service.TranscodeService,
	videoRepo repo.VideoRecordRepository,
	publisher gateway.TranscodeEventPublisher,
	cfg *config.Config,
) TranscodeWorker {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &transcodeWorkerImpl{
		id:           id,
		jobQueue:     jobQueue,
		transcodeSvc: transcodeSvc,
		videoRepo:    videoRepo,
		publisher:    publisher,
		cfg:          cfg,
		stats: WorkerStats{
			StartTime: time.Now(),
		},
	}
}

// Start 启动工作器
func (w *transcodeWorkerImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.stats.StartTime = time.Now()

	logger.Infof("Starting transcode worker id=%s poll_enabled=%v", w.id, w.cfg.Worker.Enabled)

	w.wg.Add(1)
	go w.queueLoop(workerCtx)

	if w.cfg.Worker.Enabled {
		w.wg.Add(1)
		go w.pollLoop(workerCtx)

		w.wg.Add(1)
		go w.reapLoop(workerCtx)
	}

	return nil
}

// Stop 停止工作器
func (w *transcodeWorkerImpl) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Unlock()

	w.wg.Wait()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	logger.Infof("Transcode worker stopped id=%s", w.id)
	return nil
}

// IsRunning 检查工作器是否运行中
func (w *transcodeWorkerImpl) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// GetStats 获取工作器统计信息
func (w *transcodeWorkerImpl) GetStats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	stats := w.stats
	stats.Running = w.running
	if w.jobQueue != nil {
		stats.QueueDepth = w.jobQueue.Size()
	}
	return stats
}

// queueLoop 消费进程内作业队列（enqueue触发路径的单消费者）。
func (w *transcodeWorkerImpl) queueLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		job, err := w.jobQueue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.Warnf("worker dequeue failed id=%s error=%v", w.id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		w.runJob(ctx, job.VideoUUID, job.SourceURL, job.Bucket)
	}
}

// pollLoop 数据库轮询循环：每次领取一个最久未更新的待转码记录。
// 空转睡idle间隔，作业失败睡cooldown间隔抑制对坏文件的崩溃循环。
func (w *transcodeWorkerImpl) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		candidates, err := w.videoRepo.QueryEligible(ctx, 1)
		if err != nil {
			logger.Warnf("worker poll query failed id=%s error=%v", w.id, err)
			if !w.sleep(ctx, w.cfg.Worker.PollInterval) {
				return
			}
			continue
		}

		if len(candidates) == 0 {
			if !w.sleep(ctx, w.cfg.Worker.IdleDelay) {
				return
			}
			continue
		}

		rec := candidates[0]
		ok := w.runJob(ctx, rec.VideoUUID(), rec.VideoURL(), rec.StorageBucket())
		if !ok {
			if !w.sleep(ctx, w.cfg.Worker.FailureCooldown) {
				return
			}
			continue
		}

		if !w.sleep(ctx, w.cfg.Worker.PollInterval) {
			return
		}
	}
}

// reapLoop 定期把租约过期的processing记录重置回pending。
func (w *transcodeWorkerImpl) reapLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.Worker.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := w.videoRepo.ReleaseStale(ctx, int64(w.cfg.Worker.LeaseTTL.Seconds()))
			if err != nil {
				logger.Warnf("stale job sweep failed id=%s error=%v", w.id, err)
				continue
			}
			if reclaimed > 0 {
				logger.Infof("stale jobs reclaimed id=%s count=%d", w.id, reclaimed)
				w.updateStats(func(s *WorkerStats) { s.ReclaimedJobs += uint64(reclaimed) })
			}
		}
	}
}

// runJob 执行一次作业并承担失败记账：除作业被他人持有的情况外，
// 任何错误都落failed终态。返回本次是否成功（含跳过）。
func (w *transcodeWorkerImpl) runJob(ctx context.Context, videoUUID, sourceURL string, bucket vo.StorageBucket) bool {
	w.updateStats(func(s *WorkerStats) {
		s.ProcessedJobs++
		s.LastJobTime = time.Now()
	})

	err := w.transcodeSvc.ExecuteJob(ctx, videoUUID, sourceURL, bucket)
	if err == nil {
		w.updateStats(func(s *WorkerStats) { s.SuccessfulJobs++ })
		return true
	}

	var be *errno.BizError
	if errors.As(err, &be) && be.Errno == errno.ErrAlreadyProcessing {
		// 他人已持有，不算失败也不落终态。
		logger.Infof("job already claimed elsewhere id=%s video_uuid=%s", w.id, videoUUID)
		w.updateStats(func(s *WorkerStats) { s.SkippedJobs++ })
		return true
	}

	logger.Errorf("job failed id=%s video_uuid=%s error=%v", w.id, videoUUID, err)
	if markErr := w.videoRepo.MarkFailed(context.Background(), videoUUID, err.Error()); markErr != nil {
		logger.Errorf("mark failed errored id=%s video_uuid=%s error=%v", w.id, videoUUID, markErr)
	}

	// 失败事件与成功事件走同一个主题，同样尽力而为。
	if w.publisher != nil {
		_ = w.publisher.PublishTranscoded(context.Background(), gateway.TranscodeEvent{
			VideoUUID: videoUUID,
			Status:    vo.VideoStatusFailed.String(),
			Error:     err.Error(),
		})
	}

	w.updateStats(func(s *WorkerStats) { s.FailedJobs++ })
	return false
}

// sleep 可被ctx打断的睡眠，返回是否应继续运行。
func (w *transcodeWorkerImpl) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (w *transcodeWorkerImpl) updateStats(fn func(*WorkerStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.stats)
}
