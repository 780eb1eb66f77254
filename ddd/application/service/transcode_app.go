package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"media-transcode-service/ddd/application/cqe"
	"media-transcode-service/ddd/application/dto"
	"media-transcode-service/ddd/domain/gateway"
	"media-transcode-service/ddd/domain/repo"
	"media-transcode-service/ddd/domain/service"
	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/ddd/infrastructure/queue"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/errno"
	"media-transcode-service/pkg/logger"
)

// ephemeralRuntimeEnvVars serverless/请求级运行时的指纹环境变量。
// 这类环境不能在响应后继续跑长任务，同步转码一律禁用。
var ephemeralRuntimeEnvVars = []string{
	"K_SERVICE",
	"AWS_LAMBDA_FUNCTION_NAME",
	"FUNCTION_TARGET",
}

// TranscodeApp 转码应用服务接口
type TranscodeApp interface {
	// Enqueue 受理转码作业并投入进程内队列，立即返回。
	Enqueue(ctx context.Context, cmd *cqe.EnqueueTranscodeCmd) (*dto.EnqueueResultDto, error)

	// RunInline 同步执行一次转码作业，受运维开关与运行时检测门控。
	RunInline(ctx context.Context, cmd *cqe.InlineTranscodeCmd) (*dto.InlineResultDto, error)

	// GetProgress 查询转码进度
	GetProgress(ctx context.Context, videoUUID string) (*dto.TranscodeProgressDto, error)
}

// transcodeAppImpl 转码应用服务实现
type transcodeAppImpl struct {
	videoRepo    repo.VideoRecordRepository
	transcodeSvc service.TranscodeService
	jobQueue     queue.JobQueue
	publisher    gateway.TranscodeEventPublisher
	cfg          *config.Config
}

// NewTranscodeApp 创建转码应用服务
func NewTranscodeApp(
	videoRepo repo.VideoRecordRepository,
	transcodeSvc service.TranscodeService,
	jobQueue queue.JobQueue,
	publisher gateway.TranscodeEventPublisher,
	cfg *config.Config,
) TranscodeApp {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &transcodeAppImpl{
		videoRepo:    videoRepo,
		transcodeSvc: transcodeSvc,
		jobQueue:     jobQueue,
		publisher:    publisher,
		cfg:          cfg,
	}
}

// Enqueue 受理转码作业
func (app *transcodeAppImpl) Enqueue(ctx context.Context, cmd *cqe.EnqueueTranscodeCmd) (*dto.EnqueueResultDto, error) {
	bucket, err := cmd.Validate()
	if err != nil {
		return nil, err
	}

	sourceURL := cmd.SourceURL
	if sourceURL == "" {
		rec, err := app.videoRepo.GetVideoRecord(ctx, cmd.VideoUUID)
		if err != nil {
			return nil, errno.NewBizError(errno.ErrDatabase, err)
		}
		if rec == nil {
			return nil, errno.NewBizError(errno.ErrVideoNotFound, fmt.Errorf("video %s", cmd.VideoUUID))
		}
		if !rec.NeedsTranscode() {
			return nil, errno.NewBizError(errno.ErrTranscodeNotNeeded, nil)
		}
		sourceURL = rec.VideoURL()
		bucket = rec.StorageBucket()
	}

	job := &queue.VideoJob{
		VideoUUID: cmd.VideoUUID,
		SourceURL: sourceURL,
		Bucket:    bucket,
	}
	if err := app.jobQueue.Enqueue(ctx, job); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			return nil, errno.NewBizError(errno.ErrQueueFull, nil)
		}
		return nil, errno.NewBizError(errno.ErrInternalServer, err)
	}

	logger.Infof("transcode job enqueued video_uuid=%s bucket=%s depth=%d",
		cmd.VideoUUID, bucket.String(), app.jobQueue.Size())

	return &dto.EnqueueResultDto{
		VideoUUID:  cmd.VideoUUID,
		Accepted:   true,
		QueueDepth: app.jobQueue.Size(),
	}, nil
}

// RunInline 同步执行转码
func (app *transcodeAppImpl) RunInline(ctx context.Context, cmd *cqe.InlineTranscodeCmd) (*dto.InlineResultDto, error) {
	bucket, err := cmd.Validate()
	if err != nil {
		return nil, err
	}

	if !app.cfg.Transcode.AllowInline {
		return nil, errno.NewBizError(errno.ErrInlineDisabled, nil)
	}
	if name, ephemeral := detectEphemeralRuntime(); ephemeral {
		return nil, errno.NewBizError(errno.ErrInlineDisabled,
			fmt.Errorf("ephemeral runtime detected via %s", name))
	}

	sourceURL := cmd.SourceURL
	if sourceURL == "" {
		rec, err := app.videoRepo.GetVideoRecord(ctx, cmd.VideoUUID)
		if err != nil {
			return nil, errno.NewBizError(errno.ErrDatabase, err)
		}
		if rec == nil {
			return nil, errno.NewBizError(errno.ErrVideoNotFound, fmt.Errorf("video %s", cmd.VideoUUID))
		}
		if !rec.NeedsTranscode() {
			return nil, errno.NewBizError(errno.ErrTranscodeNotNeeded, nil)
		}
		sourceURL = rec.VideoURL()
		bucket = rec.StorageBucket()
	}

	// 同步路径同样承担失败记账
	if err := app.transcodeSvc.ExecuteJob(ctx, cmd.VideoUUID, sourceURL, bucket); err != nil {
		var be *errno.BizError
		if errors.As(err, &be) && be.Errno == errno.ErrAlreadyProcessing {
			// 别处已持有作业，不能覆盖在途状态。
			return nil, err
		}
		if markErr := app.videoRepo.MarkFailed(ctx, cmd.VideoUUID, err.Error()); markErr != nil {
			logger.Errorf("inline mark failed errored video_uuid=%s error=%v", cmd.VideoUUID, markErr)
		}
		if app.publisher != nil {
			_ = app.publisher.PublishTranscoded(ctx, gateway.TranscodeEvent{
				VideoUUID: cmd.VideoUUID,
				Status:    vo.VideoStatusFailed.String(),
				Error:     err.Error(),
			})
		}
		return nil, errno.NewBizError(errno.ErrTranscodeFailed, err)
	}

	rec, err := app.videoRepo.GetVideoRecord(ctx, cmd.VideoUUID)
	if err != nil || rec == nil {
		return &dto.InlineResultDto{VideoUUID: cmd.VideoUUID, Status: vo.VideoStatusReady.String()}, nil
	}
	return &dto.InlineResultDto{
		VideoUUID: cmd.VideoUUID,
		Status:    rec.Status().String(),
		VideoURL:  rec.VideoURL(),
	}, nil
}

// GetProgress 查询转码进度
func (app *transcodeAppImpl) GetProgress(ctx context.Context, videoUUID string) (*dto.TranscodeProgressDto, error) {
	if videoUUID == "" {
		return nil, errno.NewBizError(errno.ErrVideoUUIDRequired, nil)
	}

	rec, err := app.videoRepo.GetVideoRecord(ctx, videoUUID)
	if err != nil {
		return nil, errno.NewBizError(errno.ErrDatabase, err)
	}
	if rec == nil {
		return nil, errno.NewBizError(errno.ErrVideoNotFound, fmt.Errorf("video %s", videoUUID))
	}
	return dto.NewTranscodeProgressDto(rec), nil
}

// detectEphemeralRuntime 识别serverless运行时
func detectEphemeralRuntime() (string, bool) {
	for _, name := range ephemeralRuntimeEnvVars {
		if os.Getenv(name) != "" {
			return name, true
		}
	}
	return "", false
}
