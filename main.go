package main

import (
	"media-transcode-service/app"
	"media-transcode-service/pkg/observability"
)

func main() {
	observability.StartProfiling("media-transcode-service")
	app.Run()
}
