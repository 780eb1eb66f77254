package worker

import (
	"context"
	"fmt"

	"media-transcode-service/ddd/domain/service"
	"media-transcode-service/ddd/infrastructure/database/persistence"
	"media-transcode-service/ddd/infrastructure/executor"
	"media-transcode-service/ddd/infrastructure/lease"
	"media-transcode-service/ddd/infrastructure/messaging"
	"media-transcode-service/ddd/infrastructure/progress"
	"media-transcode-service/ddd/infrastructure/queue"
	"media-transcode-service/ddd/infrastructure/storage"
	"media-transcode-service/internal/resource"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/logger"
	"media-transcode-service/pkg/manager"
	"media-transcode-service/pkg/task"
)

func init() {
	manager.RegisterComponentPlugin(&TranscodeWorkerComponentPlugin{})
}

// defaultWorker 当前进程的工作器实例，stats接口读取用。
var defaultWorker TranscodeWorker

// DefaultWorker 返回进程内的工作器，未装配时为nil。
func DefaultWorker() TranscodeWorker {
	return defaultWorker
}

// TranscodeWorkerComponentPlugin 装配并启动转码Worker
type TranscodeWorkerComponentPlugin struct{}

func (p *TranscodeWorkerComponentPlugin) Name() string {
	return "transcodeWorkerComponent"
}

func (p *TranscodeWorkerComponentPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}

	videoRepo := persistence.NewVideoRecordRepository()
	storageGateway := storage.NewMinioStorage(resource.DefaultMinioResource())
	ffExecutor := executor.NewFFmpegExecutor(cfg)
	progressSink := progress.NewDBSink(videoRepo)
	jobLease := lease.NewRedisLease(resource.DefaultRedisResource().Client())
	thumbnailSvc := service.NewThumbnailService(videoRepo, storageGateway, ffExecutor, cfg)
	publisher := messaging.NewKafkaEventPublisher(resource.DefaultKafkaResource().Client(), cfg)
	transcodeSvc := service.NewTranscodeService(videoRepo, storageGateway, ffExecutor, progressSink, jobLease, thumbnailSvc, publisher, cfg)

	jobQueue := queue.DefaultJobQueue()
	defaultWorker = NewTranscodeWorker(cfg.Worker.WorkerID, jobQueue, transcodeSvc, videoRepo, publisher, cfg)

	return &transcodeWorkerComponent{
		name:   "transcodeWorker",
		worker: defaultWorker,
	}
}

type transcodeWorkerComponent struct {
	name   string
	worker TranscodeWorker
}

func (c *transcodeWorkerComponent) Start() error {
	if c.worker == nil {
		return fmt.Errorf("transcode worker not initialized")
	}

	// 注册为后台任务，应用启动时统一拉起。
	task.Register(&backgroundTaskAdapter{
		name:      c.name,
		startFunc: c.worker.Start,
		stopFunc:  c.worker.Stop,
	})
	logger.Infof("Transcode worker component registered name=%s", c.name)
	return nil
}

func (c *transcodeWorkerComponent) Stop() error {
	queue.CloseDefaultJobQueue()
	logger.Infof("Transcode worker component stopped name=%s", c.name)
	return nil
}

func (c *transcodeWorkerComponent) GetName() string {
	return c.name
}

// backgroundTaskAdapter adapts Start/Stop functions to the BackgroundTask interface.
type backgroundTaskAdapter struct {
	name      string
	startFunc func(ctx context.Context) error
	stopFunc  func() error
}

func (b *backgroundTaskAdapter) Name() string                    { return b.name }
func (b *backgroundTaskAdapter) Start(ctx context.Context) error { return b.startFunc(ctx) }
func (b *backgroundTaskAdapter) Stop() error                     { return b.stopFunc() }
