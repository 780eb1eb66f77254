package vo

// VideoStatus 视频记录状态
type VideoStatus string

const (
	// VideoStatusPending 待转码
	VideoStatusPending VideoStatus = "pending"
	// VideoStatusProcessing 转码中
	VideoStatusProcessing VideoStatus = "processing"
	// VideoStatusReady 可播放
	VideoStatusReady VideoStatus = "ready"
	// VideoStatusFailed 转码失败
	VideoStatusFailed VideoStatus = "failed"
)

// IsValid 检查状态是否有效
func (s VideoStatus) IsValid() bool {
	switch s {
	case VideoStatusPending, VideoStatusProcessing, VideoStatusReady, VideoStatusFailed:
		return true
	default:
		return false
	}
}

// String 返回状态字符串
func (s VideoStatus) String() string {
	return string(s)
}

// IsTerminal 检查是否为本次作业的终态
func (s VideoStatus) IsTerminal() bool {
	return s == VideoStatusReady || s == VideoStatusFailed
}

// CanTransitionTo 检查是否可以转换到目标状态
func (s VideoStatus) CanTransitionTo(target VideoStatus) bool {
	switch s {
	case VideoStatusPending:
		return target == VideoStatusProcessing
	case VideoStatusProcessing:
		return target == VideoStatusReady || target == VideoStatusFailed
	case VideoStatusFailed:
		// 失败的记录允许人工重试或被回收器重置
		return target == VideoStatusPending
	case VideoStatusReady:
		return false
	default:
		return false
	}
}

// NewVideoStatusFromString 从字符串解析状态
func NewVideoStatusFromString(s string) (VideoStatus, bool) {
	st := VideoStatus(s)
	return st, st.IsValid()
}
