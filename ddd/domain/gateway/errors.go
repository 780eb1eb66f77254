package gateway

import "fmt"

// DownloadError 源文件拉取失败（网络、签名过期、非2xx）。整个作业可重跑。
type DownloadError struct {
	URL   string
	Cause error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download source failed: %v", e.Cause)
}

func (e *DownloadError) Unwrap() error { return e.Cause }

// UploadError 目标写入失败，可重试。
type UploadError struct {
	ObjectKey string
	Cause     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload object %s failed: %v", e.ObjectKey, e.Cause)
}

func (e *UploadError) Unwrap() error { return e.Cause }
