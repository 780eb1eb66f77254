package main

import (
	"media-transcode-service/app"
	"media-transcode-service/pkg/observability"
)

// 独立Worker进程：无HTTP面，只跑轮询循环与过期租约回收。
func main() {
	observability.StartProfiling("media-transcode-worker")
	app.RunWorker()
}
