package port

import "context"

// ProgressCallback is invoked by executors to report percentage progress (0-100).
// Callbacks are delivered on strictly increasing integers only.
type ProgressCallback func(progress int)

// EncodeOptions controls a single encode run.
type EncodeOptions struct {
	ProgressCb ProgressCallback
}

// EncodeExecutor runs one full transcode of inputSource (local path or signed
// remote URL) into an H.264/AAC MP4 at outputPath.
type EncodeExecutor interface {
	RunEncode(ctx context.Context, inputSource, outputPath string, opts EncodeOptions) error
}

// FrameExtractor samples a single poster frame from a video source.
// Implementations retry once at the stream start with a simpler filter chain
// when the primary attempt yields a missing or empty file.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, inputSource, outputPath string, atSeconds float64) error

	// ProbeDuration returns the source duration in seconds, 0 when unknown.
	ProbeDuration(ctx context.Context, inputSource string) float64
}
