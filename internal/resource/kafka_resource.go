package resource

import (
	"sync"

	"media-transcode-service/pkg/assert"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/kafka"
	"media-transcode-service/pkg/manager"
)

var (
	kafkaResourceOnce      sync.Once
	singletonKafkaResource *KafkaResource
)

// KafkaResource wraps the shared kafka client so it participates in
// the resource lifecycle alongside mysql/redis/minio.
type KafkaResource struct {
	client *kafka.Client
}

func DefaultKafkaResource() *KafkaResource {
	assert.NotCircular()
	kafkaResourceOnce.Do(func() {
		singletonKafkaResource = &KafkaResource{}
	})
	assert.NotNil(singletonKafkaResource)
	return singletonKafkaResource
}

func (r *KafkaResource) MustOpen() {
	cfg := config.GetGlobalConfig()
	if cfg == nil {
		panic("global config not initialized before KafkaResource")
	}
	if !cfg.Kafka.Enabled {
		return
	}
	r.client = kafka.DefaultClient()
	r.client.MustOpen()
}

// Client returns the shared kafka client, nil when kafka is disabled.
func (r *KafkaResource) Client() *kafka.Client {
	return r.client
}

func (r *KafkaResource) Close() {
	if r.client != nil {
		r.client.Close()
		r.client = nil
	}
}

// KafkaResourcePlugin Kafka资源插件
type KafkaResourcePlugin struct{}

func (p *KafkaResourcePlugin) Name() string {
	return "kafkaResource"
}

func (p *KafkaResourcePlugin) MustCreateResource() manager.Resource {
	return DefaultKafkaResource()
}
