package port

import (
	"context"
	"time"
)

// JobLease guards a claimed job with an expiring ownership marker so a
// crashed worker's jobs become reclaimable after the TTL.
type JobLease interface {
	// Acquire takes the lease for videoUUID. Returns false when another
	// worker already holds it.
	Acquire(ctx context.Context, videoUUID, workerID string, ttl time.Duration) (bool, error)

	// Release drops the lease after the job finishes or fails.
	Release(ctx context.Context, videoUUID string) error
}
