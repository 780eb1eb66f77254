package port

import "context"

// ProgressSink persists task progress updates. Implementations may throttle
// writes; the final 100 value must always be persisted.
type ProgressSink interface {
	SaveProgress(ctx context.Context, videoUUID string, progress int) error

	// Flush drops any per-job throttling state once the job is finished.
	Flush(videoUUID string)
}
