package persistence

import (
	"context"
	"time"

	"media-transcode-service/ddd/domain/entity"
	"media-transcode-service/ddd/domain/repo"
	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/ddd/infrastructure/database/convertor"
	"media-transcode-service/ddd/infrastructure/database/dao"
)

type videoRecordRepositoryImpl struct {
	recordDao *dao.VideoRecordDAO
	convertor *convertor.VideoRecordConvertor
}

func NewVideoRecordRepository() repo.VideoRecordRepository {
	return &videoRecordRepositoryImpl{
		recordDao: dao.NewVideoRecordDAO(),
		convertor: convertor.NewVideoRecordConvertor(),
	}
}

func NewVideoRecordRepositoryWith(d *dao.VideoRecordDAO) repo.VideoRecordRepository {
	return &videoRecordRepositoryImpl{
		recordDao: d,
		convertor: convertor.NewVideoRecordConvertor(),
	}
}

func (r *videoRecordRepositoryImpl) GetVideoRecord(ctx context.Context, videoUUID string) (*entity.VideoRecord, error) {
	p, err := r.recordDao.FindByUUID(ctx, videoUUID)
	if err != nil {
		return nil, err
	}
	return r.convertor.ToEntity(p), nil
}

// QueryEligible 数据库侧按状态过滤，容器检测谓词在内存中补齐，
// 避免在SQL里维护扩展名匹配。
func (r *videoRecordRepositoryImpl) QueryEligible(ctx context.Context, limit int) ([]*entity.VideoRecord, error) {
	scan := limit * 4
	if scan < 50 {
		scan = 50
	}
	pos, err := r.recordDao.QueryByStatus(ctx, vo.VideoStatusPending.String(), scan)
	if err != nil {
		return nil, err
	}

	out := make([]*entity.VideoRecord, 0, limit)
	for _, rec := range r.convertor.ToEntities(pos) {
		if !rec.NeedsTranscode() {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *videoRecordRepositoryImpl) ClaimForProcessing(ctx context.Context, videoUUID, workerID string) (bool, error) {
	return r.recordDao.ClaimForProcessing(ctx, videoUUID, workerID)
}

func (r *videoRecordRepositoryImpl) UpdateProgress(ctx context.Context, videoUUID string, progress int) error {
	return r.recordDao.UpdateProgress(ctx, videoUUID, progress)
}

func (r *videoRecordRepositoryImpl) MarkReady(ctx context.Context, videoUUID, publicURL string) error {
	return r.recordDao.MarkReady(ctx, videoUUID, publicURL)
}

func (r *videoRecordRepositoryImpl) MarkFailed(ctx context.Context, videoUUID, message string) error {
	return r.recordDao.MarkFailed(ctx, videoUUID, message)
}

func (r *videoRecordRepositoryImpl) SetThumbnailIfEmpty(ctx context.Context, videoUUID, thumbnailURL string) (bool, error) {
	return r.recordDao.SetThumbnailIfEmpty(ctx, videoUUID, thumbnailURL)
}

func (r *videoRecordRepositoryImpl) ReleaseStale(ctx context.Context, olderThanSeconds int64) (int64, error) {
	deadline := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	return r.recordDao.ReleaseStale(ctx, deadline)
}

func (r *videoRecordRepositoryImpl) UpdateStatus(ctx context.Context, videoUUID string, status vo.VideoStatus) error {
	return r.recordDao.UpdateStatus(ctx, videoUUID, status.String())
}
