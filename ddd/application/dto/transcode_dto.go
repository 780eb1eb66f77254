package dto

import (
	"media-transcode-service/ddd/domain/entity"
)

// TranscodeProgressDto 转码进度视图
type TranscodeProgressDto struct {
	VideoUUID    string `json:"video_uuid"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	VideoURL     string `json:"video_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// NewTranscodeProgressDto 由实体组装进度视图
func NewTranscodeProgressDto(rec *entity.VideoRecord) *TranscodeProgressDto {
	if rec == nil {
		return nil
	}
	return &TranscodeProgressDto{
		VideoUUID:    rec.VideoUUID(),
		Status:       rec.Status().String(),
		Progress:     rec.TranscodeProgress(),
		VideoURL:     rec.VideoURL(),
		ThumbnailURL: rec.ThumbnailURL(),
		LastError:    rec.LastError(),
	}
}

// EnqueueResultDto 入队受理结果
type EnqueueResultDto struct {
	VideoUUID  string `json:"video_uuid"`
	Accepted   bool   `json:"accepted"`
	QueueDepth int    `json:"queue_depth"`
}

// InlineResultDto 同步转码执行结果
type InlineResultDto struct {
	VideoUUID string `json:"video_uuid"`
	Status    string `json:"status"`
	VideoURL  string `json:"video_url,omitempty"`
}
