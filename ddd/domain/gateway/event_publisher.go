package gateway

import "context"

// TranscodeEvent 作业完成事件，广播给下游（目录服务、通知）。
type TranscodeEvent struct {
	VideoUUID string `json:"video_uuid"`
	VideoURL  string `json:"video_url,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// TranscodeEventPublisher 转码结果发布。实现必须尽力而为：
// 发布失败不应影响作业终态。
type TranscodeEventPublisher interface {
	PublishTranscoded(ctx context.Context, event TranscodeEvent) error
}
