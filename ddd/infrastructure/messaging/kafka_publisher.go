package messaging

import (
	"context"
	"encoding/json"

	"media-transcode-service/ddd/domain/gateway"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/kafka"
	"media-transcode-service/pkg/logger"
)

// KafkaEventPublisher 把转码完成事件写入Kafka。
type KafkaEventPublisher struct {
	client *kafka.Client
	topic  string
}

// NewKafkaEventPublisher 创建Kafka事件发布器，client为nil时发布为空操作。
func NewKafkaEventPublisher(client *kafka.Client, cfg *config.Config) gateway.TranscodeEventPublisher {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	topic := "video.transcoded"
	if cfg != nil && cfg.Kafka.Topics.VideoTranscoded != "" {
		topic = cfg.Kafka.Topics.VideoTranscoded
	}
	return &KafkaEventPublisher{client: client, topic: topic}
}

func (p *KafkaEventPublisher) PublishTranscoded(ctx context.Context, event gateway.TranscodeEvent) error {
	if p.client == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.client.Produce(ctx, p.topic, []byte(event.VideoUUID), payload); err != nil {
		logger.Warnf("publish transcode event failed video_uuid=%s error=%v", event.VideoUUID, err)
		return err
	}
	return nil
}
