package repo

import (
	"context"

	"media-transcode-service/ddd/domain/entity"
	"media-transcode-service/ddd/domain/vo"
)

// VideoRecordRepository 视频记录仓储。转码核心只做字段级局部更新，
// 完整CRUD由目录服务负责。
type VideoRecordRepository interface {
	// GetVideoRecord 按UUID读取记录
	GetVideoRecord(ctx context.Context, videoUUID string) (*entity.VideoRecord, error)

	// QueryEligible 查询待转码候选，按updated_at升序（饥饿作业优先）。
	QueryEligible(ctx context.Context, limit int) ([]*entity.VideoRecord, error)

	// ClaimForProcessing 以CAS方式领取作业：仅当状态仍为pending时
	// 置为processing并重置进度，返回是否领取成功。
	ClaimForProcessing(ctx context.Context, videoUUID, workerID string) (bool, error)

	// UpdateProgress 更新转码进度
	UpdateProgress(ctx context.Context, videoUUID string, progress int) error

	// MarkReady 写入成功终态：新URL、video/mp4、ready、进度100。
	MarkReady(ctx context.Context, videoUUID, publicURL string) error

	// MarkFailed 写入失败终态并保留最近错误信息
	MarkFailed(ctx context.Context, videoUUID, message string) error

	// SetThumbnailIfEmpty 条件写入封面图，已有值时不覆盖；返回是否写入。
	SetThumbnailIfEmpty(ctx context.Context, videoUUID, thumbnailURL string) (bool, error)

	// ReleaseStale 将领取时间早于deadline的processing记录重置为pending，
	// 返回被回收的记录数。
	ReleaseStale(ctx context.Context, olderThanSeconds int64) (int64, error)

	// UpdateStatus 通用状态更新（校验交由调用方）
	UpdateStatus(ctx context.Context, videoUUID string, status vo.VideoStatus) error
}
