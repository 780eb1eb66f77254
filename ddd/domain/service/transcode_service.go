package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"media-transcode-service/ddd/domain/gateway"
	"media-transcode-service/ddd/domain/port"
	"media-transcode-service/ddd/domain/repo"
	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/errno"
	"media-transcode-service/pkg/logger"
)

// TranscodeService 转码领域服务。一次作业端到端执行：
// 领取、下载、编码、上传、落终态，临时文件无条件清理。
type TranscodeService interface {
	// ExecuteJob 执行一次转码作业。失败时错误向上传播，
	// 由触发方负责写入failed终态。
	ExecuteJob(ctx context.Context, videoUUID, sourceURL string, bucket vo.StorageBucket) error
}

type transcodeServiceImpl struct {
	videoRepo    repo.VideoRecordRepository
	storage      gateway.StorageGateway
	encoder      port.EncodeExecutor
	progressSink port.ProgressSink
	jobLease     port.JobLease
	thumbnails   ThumbnailService
	publisher    gateway.TranscodeEventPublisher
	cfg          *config.Config
}

// NewTranscodeService 创建转码领域服务
func NewTranscodeService(
	videoRepo repo.VideoRecordRepository,
	storage gateway.StorageGateway,
	encoder port.EncodeExecutor,
	progressSink port.ProgressSink,
	jobLease port.JobLease,
	thumbnails ThumbnailService,
	publisher gateway.TranscodeEventPublisher,
	cfg *config.Config,
) TranscodeService {
	return &transcodeServiceImpl{
		videoRepo:    videoRepo,
		storage:      storage,
		encoder:      encoder,
		progressSink: progressSink,
		jobLease:     jobLease,
		thumbnails:   thumbnails,
		publisher:    publisher,
		cfg:          cfg,
	}
}

// ExecuteJob 执行一次转码作业
func (s *transcodeServiceImpl) ExecuteJob(ctx context.Context, videoUUID, sourceURL string, bucket vo.StorageBucket) error {
	logger.Infof("start transcode job video_uuid=%s bucket=%s source=%s", videoUUID, bucket.String(), sourceURL)

	cfg := s.cfg
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}

	// 1. 从历史URL还原对象Key，失败为作业级致命错误。
	sourceKey := s.storage.ExtractKey(sourceURL, bucket)
	if sourceKey == "" {
		return errno.NewBizError(errno.ErrKeyResolution,
			fmt.Errorf("unrecognized source url %q in bucket %s", sourceURL, bucket.String()))
	}

	// 2. 以CAS领取作业：仅当记录仍为pending时置processing，
	// 把读-写竞态收敛为单个比较交换。
	workerID := cfg.Worker.WorkerID
	claimed, err := s.videoRepo.ClaimForProcessing(ctx, videoUUID, workerID)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		return errno.NewBizError(errno.ErrAlreadyProcessing,
			fmt.Errorf("video %s is not claimable", videoUUID))
	}

	if s.jobLease != nil {
		ok, leaseErr := s.jobLease.Acquire(ctx, videoUUID, workerID, cfg.Worker.LeaseTTL)
		if leaseErr != nil {
			logger.Warnf("lease acquire failed, proceeding on db claim video_uuid=%s error=%v", videoUUID, leaseErr)
		} else if !ok {
			// CAS已领取但租约在别处，退回pending让持有方或下一轮重试接手。
			if stErr := s.videoRepo.UpdateStatus(ctx, videoUUID, vo.VideoStatusPending); stErr != nil {
				logger.Warnf("release claim after lease denial failed video_uuid=%s error=%v", videoUUID, stErr)
			}
			return errno.NewBizError(errno.ErrAlreadyProcessing,
				fmt.Errorf("lease for video %s held elsewhere", videoUUID))
		}
		defer func() {
			_ = s.jobLease.Release(context.Background(), videoUUID)
		}()
	}

	defer s.progressSink.Flush(videoUUID)

	// 3. 签发限时下载地址
	signedURL, err := s.storage.SignedDownloadURL(ctx, sourceKey, bucket, cfg.Transcode.SignedURLTTL)
	if err != nil {
		return fmt.Errorf("sign download url: %w", err)
	}

	// 4. 下载到唯一命名的临时路径，同目录并发作业互不碰撞。
	tempDir := cfg.Transcode.FFmpeg.TempDir
	localInput := filepath.Join(tempDir, "inputs",
		fmt.Sprintf("src_%s_%d%s", videoUUID, time.Now().UnixNano(), sourceExtension(sourceKey)))
	localOutput := filepath.Join(tempDir, "outputs",
		fmt.Sprintf("out_%s_%d.mp4", videoUUID, time.Now().UnixNano()))

	// 无论成败都清理本次作业的临时文件
	defer removeTempFiles(localInput, localOutput)

	if err := os.MkdirAll(filepath.Dir(localOutput), 0o755); err != nil {
		return fmt.Errorf("create temp output dir: %w", err)
	}
	if err := s.storage.DownloadToFile(ctx, signedURL, localInput); err != nil {
		return err
	}

	// 5. 编码，进度经节流落库。
	opts := port.EncodeOptions{
		ProgressCb: func(progress int) {
			_ = s.progressSink.SaveProgress(ctx, videoUUID, progress)
		},
	}
	if err := s.encoder.RunEncode(ctx, localInput, localOutput, opts); err != nil {
		return err
	}

	// 6-7. 计算目标Key并上传
	destKey := deriveDestinationKey(sourceKey)
	publicURL, err := s.storage.UploadLocalFile(ctx, localOutput, destKey, "video/mp4", bucket)
	if err != nil {
		return err
	}

	// 8. 落成功终态
	if err := s.videoRepo.MarkReady(ctx, videoUUID, publicURL); err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}

	// 封面图尽力而为，用刚产出的本地MP4省一次远端下载。
	if s.thumbnails != nil {
		s.thumbnails.MaybeGenerate(ctx, videoUUID, localOutput, bucket)
	}

	// 完成事件同样尽力而为
	if s.publisher != nil {
		_ = s.publisher.PublishTranscoded(ctx, gateway.TranscodeEvent{
			VideoUUID: videoUUID,
			VideoURL:  publicURL,
			Status:    vo.VideoStatusReady.String(),
		})
	}

	logger.Infof("transcode job finished video_uuid=%s dest_key=%s", videoUUID, destKey)
	return nil
}

// deriveDestinationKey 源Key换成.mp4扩展名；若与源Key相同
// （源已是.mp4或无扩展名），改用全新的唯一Key避免覆盖源对象。
func deriveDestinationKey(sourceKey string) string {
	ext := path.Ext(sourceKey)
	if ext != "" {
		candidate := strings.TrimSuffix(sourceKey, ext) + ".mp4"
		if candidate != sourceKey {
			return candidate
		}
	}

	dir := path.Dir(sourceKey)
	fresh := uuid.New().String() + ".mp4"
	if dir == "." || dir == "/" {
		return fresh
	}
	return dir + "/" + fresh
}

func sourceExtension(key string) string {
	ext := path.Ext(key)
	if ext == "" {
		return ".bin"
	}
	return ext
}

func removeTempFiles(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warnf("failed to clean temp file path=%s error=%v", p, err)
		}
	}
}
