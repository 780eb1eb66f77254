package cqe

import (
	"fmt"

	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/pkg/errno"
)

// EnqueueTranscodeCmd 入队转码作业命令
type EnqueueTranscodeCmd struct {
	VideoUUID string `json:"video_uuid" binding:"required"`
	SourceURL string `json:"source_url"`
	MimeType  string `json:"mime_type"`
	Bucket    string `json:"bucket"`
}

// Validate 校验命令并解析逻辑桶
func (c *EnqueueTranscodeCmd) Validate() (vo.StorageBucket, error) {
	if c.VideoUUID == "" {
		return "", errno.NewBizError(errno.ErrVideoUUIDRequired, nil)
	}
	bucket, ok := vo.NewStorageBucketFromString(c.Bucket)
	if !ok {
		return "", errno.NewBizError(errno.ErrStorageBucketUnknown, fmt.Errorf("bucket %q", c.Bucket))
	}
	return bucket, nil
}

// InlineTranscodeCmd 同步执行转码命令，仅在运维开关放行时可用。
type InlineTranscodeCmd struct {
	VideoUUID string `json:"video_uuid" binding:"required"`
	SourceURL string `json:"source_url"`
	Bucket    string `json:"bucket"`
}

// Validate 校验命令并解析逻辑桶
func (c *InlineTranscodeCmd) Validate() (vo.StorageBucket, error) {
	if c.VideoUUID == "" {
		return "", errno.NewBizError(errno.ErrVideoUUIDRequired, nil)
	}
	bucket, ok := vo.NewStorageBucketFromString(c.Bucket)
	if !ok {
		return "", errno.NewBizError(errno.ErrStorageBucketUnknown, fmt.Errorf("bucket %q", c.Bucket))
	}
	return bucket, nil
}
