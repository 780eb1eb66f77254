package convertor

import (
	"media-transcode-service/ddd/domain/entity"
	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/ddd/infrastructure/database/po"
)

// VideoRecordConvertor PO与实体互转
type VideoRecordConvertor struct{}

func NewVideoRecordConvertor() *VideoRecordConvertor {
	return &VideoRecordConvertor{}
}

func (c *VideoRecordConvertor) ToEntity(p *po.VideoRecord) *entity.VideoRecord {
	if p == nil {
		return nil
	}
	bucket, ok := vo.NewStorageBucketFromString(p.StorageBucket)
	if !ok {
		bucket = vo.BucketMedia
	}
	status, _ := vo.NewVideoStatusFromString(p.Status)

	rec := entity.NewVideoRecord(p.VideoUUID, p.VideoURL, p.MimeType, status, bucket)
	if p.TranscodeProgress != nil {
		rec.SetTranscodeProgress(*p.TranscodeProgress)
	}
	if p.ThumbnailURL != nil && *p.ThumbnailURL != "" {
		rec.SetThumbnailURL(*p.ThumbnailURL)
	}
	rec.SetLastError(p.LastError)
	rec.SetClaim(p.ClaimedBy, p.ClaimedAt)
	rec.SetCreatedAt(p.CreatedAt)
	rec.SetUpdatedAt(p.UpdatedAt)
	return rec
}

func (c *VideoRecordConvertor) ToEntities(pos []*po.VideoRecord) []*entity.VideoRecord {
	out := make([]*entity.VideoRecord, 0, len(pos))
	for _, p := range pos {
		if e := c.ToEntity(p); e != nil {
			out = append(out, e)
		}
	}
	return out
}
