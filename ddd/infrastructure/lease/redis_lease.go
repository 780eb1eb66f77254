package lease

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"media-transcode-service/ddd/domain/port"
)

const leaseKeyPrefix = "transcode:lease:"

// RedisLease 基于SETNX+TTL的作业租约。数据库CAS是主防线，
// 租约用于跨进程观察在途作业并在持有者崩溃后自动过期。
type RedisLease struct {
	client *redis.Client
}

func NewRedisLease(client *redis.Client) port.JobLease {
	return &RedisLease{client: client}
}

func (l *RedisLease) Acquire(ctx context.Context, videoUUID, workerID string, ttl time.Duration) (bool, error) {
	if l.client == nil {
		// Redis不可用时放行，依赖数据库CAS保证互斥。
		return true, nil
	}
	return l.client.SetNX(ctx, leaseKeyPrefix+videoUUID, workerID, ttl).Result()
}

func (l *RedisLease) Release(ctx context.Context, videoUUID string) error {
	if l.client == nil {
		return nil
	}
	return l.client.Del(ctx, leaseKeyPrefix+videoUUID).Err()
}
