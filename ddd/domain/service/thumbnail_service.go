package service

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"media-transcode-service/ddd/domain/gateway"
	"media-transcode-service/ddd/domain/port"
	"media-transcode-service/ddd/domain/repo"
	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/logger"
)

// ThumbnailService 封面图服务。封面是装饰性的：任何失败只记日志，
// 绝不影响调用方的转码作业。
type ThumbnailService interface {
	// MaybeGenerate 为视频生成封面图，返回封面URL；
	// 已有封面或生成失败时返回空串。
	MaybeGenerate(ctx context.Context, videoUUID, source string, bucket vo.StorageBucket) string
}

type thumbnailServiceImpl struct {
	videoRepo repo.VideoRecordRepository
	storage   gateway.StorageGateway
	frames    port.FrameExtractor
	cfg       *config.Config
}

// NewThumbnailService 创建封面图服务
func NewThumbnailService(
	videoRepo repo.VideoRecordRepository,
	storage gateway.StorageGateway,
	frames port.FrameExtractor,
	cfg *config.Config,
) ThumbnailService {
	return &thumbnailServiceImpl{
		videoRepo: videoRepo,
		storage:   storage,
		frames:    frames,
		cfg:       cfg,
	}
}

// MaybeGenerate 为视频生成封面图
func (s *thumbnailServiceImpl) MaybeGenerate(ctx context.Context, videoUUID, source string, bucket vo.StorageBucket) string {
	cfg := s.cfg
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	if cfg != nil && !cfg.Thumbnail.Enabled {
		return ""
	}

	// 先查一次避免竞态触发下的无谓编码
	rec, err := s.videoRepo.GetVideoRecord(ctx, videoUUID)
	if err != nil {
		logger.Warnf("thumbnail precheck failed video_uuid=%s error=%v", videoUUID, err)
		return ""
	}
	if rec == nil || rec.HasThumbnail() {
		return ""
	}

	duration := s.frames.ProbeDuration(ctx, source)
	atSeconds := pickThumbnailTimestamp(duration)

	tempDir := os.TempDir()
	if cfg != nil && cfg.Transcode.FFmpeg.TempDir != "" {
		tempDir = cfg.Transcode.FFmpeg.TempDir
	}
	thumbPath := filepath.Join(tempDir, "thumbs",
		fmt.Sprintf("thumb_%s_%d.jpg", videoUUID, time.Now().UnixNano()))
	if err := os.MkdirAll(filepath.Dir(thumbPath), 0o755); err != nil {
		logger.Warnf("thumbnail temp dir failed video_uuid=%s error=%v", videoUUID, err)
		return ""
	}
	defer removeTempFiles(thumbPath)

	if err := s.frames.ExtractFrame(ctx, source, thumbPath, atSeconds); err != nil {
		logger.Warnf("thumbnail extraction failed video_uuid=%s at=%.2f error=%v", videoUUID, atSeconds, err)
		return ""
	}

	objectKey := fmt.Sprintf("thumbnails/%s.jpg", videoUUID)
	publicURL, err := s.storage.UploadLocalFile(ctx, thumbPath, objectKey, "image/jpeg", bucket)
	if err != nil {
		logger.Warnf("thumbnail upload failed video_uuid=%s error=%v", videoUUID, err)
		return ""
	}

	// 条件写入，关闭前查与落库之间的竞态窗口。
	written, err := s.videoRepo.SetThumbnailIfEmpty(ctx, videoUUID, publicURL)
	if err != nil {
		logger.Warnf("thumbnail persist failed video_uuid=%s error=%v", videoUUID, err)
		return ""
	}
	if !written {
		return ""
	}

	logger.Infof("thumbnail generated video_uuid=%s url=%s", videoUUID, publicURL)
	return publicURL
}

// pickThumbnailTimestamp 时长已知且超过5秒时，在中段80%区间
// （[10%,90%]均匀分布）取帧；过短或未知时长取中点或片头。
func pickThumbnailTimestamp(durationSec float64) float64 {
	if durationSec > 5 {
		return durationSec * (0.1 + rand.Float64()*0.8)
	}
	if durationSec > 0 {
		return durationSec / 2
	}
	return 0
}
