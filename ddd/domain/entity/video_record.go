package entity

import (
	"path"
	"strings"
	"time"

	"media-transcode-service/ddd/domain/vo"
)

// VideoRecord 视频记录实体。目录服务拥有完整记录，
// 转码核心只读写与作业相关的字段子集。
type VideoRecord struct {
	videoUUID         string           // 视频ID
	videoURL          string           // 当前源文件地址（绝对或相对存储路径）
	mimeType          string           // 声明的内容类型
	status            vo.VideoStatus   // 记录状态
	transcodeProgress *int             // 转码进度 0-100，未开始为nil
	storageBucket     vo.StorageBucket // 所在逻辑桶
	thumbnailURL      *string          // 封面图，只允许从空设置一次
	lastError         string           // 最近一次失败原因（运维可见）
	claimedBy         string           // 持有租约的Worker
	claimedAt         *time.Time       // 租约获取时间
	createdAt         time.Time
	updatedAt         time.Time
}

// NewVideoRecord 组装视频记录实体
func NewVideoRecord(videoUUID, videoURL, mimeType string, status vo.VideoStatus, bucket vo.StorageBucket) *VideoRecord {
	now := time.Now()
	return &VideoRecord{
		videoUUID:     videoUUID,
		videoURL:      videoURL,
		mimeType:      mimeType,
		status:        status,
		storageBucket: bucket,
		createdAt:     now,
		updatedAt:     now,
	}
}

// Getters
func (r *VideoRecord) VideoUUID() string               { return r.videoUUID }
func (r *VideoRecord) VideoURL() string                { return r.videoURL }
func (r *VideoRecord) MimeType() string                { return r.mimeType }
func (r *VideoRecord) Status() vo.VideoStatus          { return r.status }
func (r *VideoRecord) StorageBucket() vo.StorageBucket { return r.storageBucket }
func (r *VideoRecord) LastError() string               { return r.lastError }
func (r *VideoRecord) ClaimedBy() string               { return r.claimedBy }
func (r *VideoRecord) ClaimedAt() *time.Time           { return r.claimedAt }
func (r *VideoRecord) CreatedAt() time.Time            { return r.createdAt }
func (r *VideoRecord) UpdatedAt() time.Time            { return r.updatedAt }

// TranscodeProgress 返回进度，未开始时为0。
func (r *VideoRecord) TranscodeProgress() int {
	if r.transcodeProgress == nil {
		return 0
	}
	return *r.transcodeProgress
}

// HasThumbnail 是否已有封面图
func (r *VideoRecord) HasThumbnail() bool {
	return r.thumbnailURL != nil && *r.thumbnailURL != ""
}

// ThumbnailURL 返回封面图地址，未设置为空串。
func (r *VideoRecord) ThumbnailURL() string {
	if r.thumbnailURL == nil {
		return ""
	}
	return *r.thumbnailURL
}

// Setters（仓储层回填使用）
func (r *VideoRecord) SetStatus(s vo.VideoStatus)              { r.status = s; r.updatedAt = time.Now() }
func (r *VideoRecord) SetVideoURL(u string)                    { r.videoURL = u }
func (r *VideoRecord) SetMimeType(m string)                    { r.mimeType = m }
func (r *VideoRecord) SetLastError(msg string)                 { r.lastError = msg }
func (r *VideoRecord) SetClaim(workerID string, at *time.Time) { r.claimedBy = workerID; r.claimedAt = at }
func (r *VideoRecord) SetCreatedAt(t time.Time)                { r.createdAt = t }
func (r *VideoRecord) SetUpdatedAt(t time.Time)                { r.updatedAt = t }

func (r *VideoRecord) SetTranscodeProgress(p int) {
	r.transcodeProgress = &p
	r.updatedAt = time.Now()
}

func (r *VideoRecord) SetThumbnailURL(u string) {
	r.thumbnailURL = &u
}

// transportStreamMimeTypes 需要转码的容器类型。
// MP4以外的常见容器统一转出H.264/AAC MP4。
var transportStreamMimeTypes = map[string]struct{}{
	"video/mp2t":              {},
	"video/vnd.dlna.mpeg-tts": {},
	"video/x-matroska":        {},
	"video/x-msvideo":         {},
	"video/avi":               {},
	"video/quicktime":         {},
	"video/x-ms-wmv":          {},
	"video/x-flv":             {},
	"video/webm":              {},
}

var transcodeExtensions = map[string]struct{}{
	".ts":   {},
	".m2ts": {},
	".mts":  {},
	".mkv":  {},
	".avi":  {},
	".mov":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
}

// NeedsTranscode 检测谓词：MIME表明是传输流/非MP4容器，
// 或URL扩展名表明如此，且记录尚未成为可播放的MP4。
func (r *VideoRecord) NeedsTranscode() bool {
	if r.status == vo.VideoStatusReady && strings.EqualFold(r.mimeType, "video/mp4") {
		return false
	}

	mime := strings.ToLower(strings.TrimSpace(r.mimeType))
	if _, ok := transportStreamMimeTypes[mime]; ok {
		return true
	}

	ext := strings.ToLower(path.Ext(stripQuery(r.videoURL)))
	_, ok := transcodeExtensions[ext]
	return ok
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}
