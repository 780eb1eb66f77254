package resource

import (
	"sync"

	"github.com/redis/go-redis/v9"

	"media-transcode-service/pkg/assert"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/logger"
	"media-transcode-service/pkg/manager"
	"media-transcode-service/pkg/redisclient"
)

var (
	redisResourceOnce      sync.Once
	singletonRedisResource *RedisResource
)

// RedisResource 管理Redis连接的生命周期
type RedisResource struct {
	client *redisclient.Client
}

// DefaultRedisResource 获取Redis资源单例
func DefaultRedisResource() *RedisResource {
	assert.NotCircular()
	redisResourceOnce.Do(func() {
		singletonRedisResource = &RedisResource{}
	})
	assert.NotNil(singletonRedisResource)
	return singletonRedisResource
}

// MustOpen 建立Redis连接
func (r *RedisResource) MustOpen() {
	if r.client != nil {
		return
	}

	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before RedisResource")
	}

	cli, err := redisclient.New(cfg.Redis)
	if err != nil {
		panic("failed to connect redis: " + err.Error())
	}
	r.client = cli

	logger.Info("Redis resource initialized", map[string]interface{}{
		"addr": cfg.Redis.GetRedisAddr(),
	})
}

// Client 获取Redis客户端
func (r *RedisResource) Client() *redis.Client {
	if r.client == nil {
		return nil
	}
	return r.client.Raw()
}

// Close 关闭Redis连接
func (r *RedisResource) Close() {
	if r.client != nil {
		_ = r.client.Close()
		r.client = nil
	}
}

// RedisResourcePlugin Redis资源插件
type RedisResourcePlugin struct{}

func (p *RedisResourcePlugin) Name() string {
	return "redisResource"
}

func (p *RedisResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultRedisResource()
}
