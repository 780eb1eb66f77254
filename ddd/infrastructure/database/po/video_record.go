package po

import "time"

// VideoRecord 视频记录持久化对象。表由目录服务建立，
// 这里只声明转码核心读写的字段子集。
type VideoRecord struct {
	BaseModel
	VideoUUID         string     `gorm:"column:video_uuid;type:varchar(36);uniqueIndex" json:"video_uuid"`
	VideoURL          string     `gorm:"column:video_url;type:varchar(1024)" json:"video_url"`
	MimeType          string     `gorm:"column:mime_type;type:varchar(100)" json:"mime_type"`
	Status            string     `gorm:"column:status;type:varchar(20);index" json:"status"`
	TranscodeProgress *int       `gorm:"column:transcode_progress;type:int" json:"transcode_progress,omitempty"`
	StorageBucket     string     `gorm:"column:storage_bucket;type:varchar(20);default:media" json:"storage_bucket"`
	ThumbnailURL      *string    `gorm:"column:thumbnail_url;type:varchar(1024)" json:"thumbnail_url,omitempty"`
	LastError         string     `gorm:"column:last_error;type:varchar(1024)" json:"last_error,omitempty"`
	ClaimedBy         string     `gorm:"column:claimed_by;type:varchar(64)" json:"claimed_by,omitempty"`
	ClaimedAt         *time.Time `gorm:"column:claimed_at;type:timestamp" json:"claimed_at,omitempty"`
}

// TableName 指定表名
func (VideoRecord) TableName() string {
	return "video_records"
}
