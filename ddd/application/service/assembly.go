package service

import (
	"sync"

	domainservice "media-transcode-service/ddd/domain/service"
	"media-transcode-service/ddd/infrastructure/database/persistence"
	"media-transcode-service/ddd/infrastructure/executor"
	"media-transcode-service/ddd/infrastructure/lease"
	"media-transcode-service/ddd/infrastructure/messaging"
	"media-transcode-service/ddd/infrastructure/progress"
	"media-transcode-service/ddd/infrastructure/queue"
	"media-transcode-service/ddd/infrastructure/storage"
	"media-transcode-service/internal/resource"
	"media-transcode-service/pkg/config"
)

var (
	defaultAppOnce sync.Once
	defaultApp     TranscodeApp
)

// DefaultTranscodeApp 装配进程级转码应用服务单例。
// 必须在资源管理器打开之后调用。
func DefaultTranscodeApp() TranscodeApp {
	defaultAppOnce.Do(func() {
		cfg := config.GetGlobalConfig()

		videoRepo := persistence.NewVideoRecordRepository()
		storageGateway := storage.NewMinioStorage(resource.DefaultMinioResource())
		ffExecutor := executor.NewFFmpegExecutor(cfg)
		progressSink := progress.NewDBSink(videoRepo)
		jobLease := lease.NewRedisLease(resource.DefaultRedisResource().Client())
		thumbnailSvc := domainservice.NewThumbnailService(videoRepo, storageGateway, ffExecutor, cfg)
		publisher := messaging.NewKafkaEventPublisher(resource.DefaultKafkaResource().Client(), cfg)
		transcodeSvc := domainservice.NewTranscodeService(
			videoRepo, storageGateway, ffExecutor, progressSink, jobLease, thumbnailSvc, publisher, cfg)

		defaultApp = NewTranscodeApp(videoRepo, transcodeSvc, queue.DefaultJobQueue(), publisher, cfg)
	})
	return defaultApp
}
