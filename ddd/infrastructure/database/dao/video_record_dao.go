package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"media-transcode-service/ddd/infrastructure/database/po"
	"media-transcode-service/internal/resource"
)

type VideoRecordDAO struct {
	db *gorm.DB
}

func NewVideoRecordDAO() *VideoRecordDAO {
	return &VideoRecordDAO{db: resource.DefaultMysqlResource().MainDB()}
}

func NewVideoRecordDAOWith(db *gorm.DB) *VideoRecordDAO {
	return &VideoRecordDAO{db: db}
}

func (d *VideoRecordDAO) FindByUUID(ctx context.Context, videoUUID string) (*po.VideoRecord, error) {
	var rec po.VideoRecord
	if err := d.db.WithContext(ctx).Where("video_uuid = ?", videoUUID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// QueryByStatus 按状态查询，updated_at升序保证FIFO公平。
func (d *VideoRecordDAO) QueryByStatus(ctx context.Context, status string, limit int) ([]*po.VideoRecord, error) {
	var recs []*po.VideoRecord
	q := d.db.WithContext(ctx).Where("status = ?", status).Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// ClaimForProcessing 将pending记录原子置为processing。
// WHERE带状态条件把读取-写入竞态收敛为一次compare-and-swap，
// RowsAffected为0说明已被其他执行方领走。
func (d *VideoRecordDAO) ClaimForProcessing(ctx context.Context, videoUUID, workerID string) (bool, error) {
	now := time.Now()
	res := d.db.WithContext(ctx).Model(&po.VideoRecord{}).
		Where("video_uuid = ? AND status = ?", videoUUID, "pending").
		Updates(map[string]interface{}{
			"status":             "processing",
			"transcode_progress": 0,
			"last_error":         "",
			"claimed_by":         workerID,
			"claimed_at":         now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (d *VideoRecordDAO) UpdateProgress(ctx context.Context, videoUUID string, progress int) error {
	return d.db.WithContext(ctx).Model(&po.VideoRecord{}).
		Where("video_uuid = ?", videoUUID).
		Update("transcode_progress", progress).Error
}

func (d *VideoRecordDAO) MarkReady(ctx context.Context, videoUUID, publicURL string) error {
	return d.db.WithContext(ctx).Model(&po.VideoRecord{}).
		Where("video_uuid = ?", videoUUID).
		Updates(map[string]interface{}{
			"video_url":          publicURL,
			"mime_type":          "video/mp4",
			"status":             "ready",
			"transcode_progress": 100,
			"last_error":         "",
			"claimed_by":         "",
			"claimed_at":         nil,
		}).Error
}

func (d *VideoRecordDAO) MarkFailed(ctx context.Context, videoUUID, message string) error {
	if len(message) > 1024 {
		message = message[:1024]
	}
	return d.db.WithContext(ctx).Model(&po.VideoRecord{}).
		Where("video_uuid = ?", videoUUID).
		Updates(map[string]interface{}{
			"status":     "failed",
			"last_error": message,
			"claimed_by": "",
			"claimed_at": nil,
		}).Error
}

// SetThumbnailIfEmpty 条件更新封闭初查与写入之间的竞态窗口。
func (d *VideoRecordDAO) SetThumbnailIfEmpty(ctx context.Context, videoUUID, thumbnailURL string) (bool, error) {
	res := d.db.WithContext(ctx).Model(&po.VideoRecord{}).
		Where("video_uuid = ? AND (thumbnail_url IS NULL OR thumbnail_url = '')", videoUUID).
		Update("thumbnail_url", thumbnailURL)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReleaseStale 回收租约过期的processing记录
func (d *VideoRecordDAO) ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res := d.db.WithContext(ctx).Model(&po.VideoRecord{}).
		Where("status = ? AND claimed_at IS NOT NULL AND claimed_at < ?", "processing", olderThan).
		Updates(map[string]interface{}{
			"status":     "pending",
			"claimed_by": "",
			"claimed_at": nil,
		})
	return res.RowsAffected, res.Error
}

func (d *VideoRecordDAO) UpdateStatus(ctx context.Context, videoUUID, status string) error {
	return d.db.WithContext(ctx).Model(&po.VideoRecord{}).
		Where("video_uuid = ?", videoUUID).
		Update("status", status).Error
}
