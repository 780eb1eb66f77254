package lease

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientPassesThrough(t *testing.T) {
	l := NewRedisLease(nil)
	ctx := context.Background()

	// Redis缺席时租约不拦截，互斥由数据库CAS兜底。
	ok, err := l.Acquire(ctx, "vid-1", "worker-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, l.Release(ctx, "vid-1"))
}
