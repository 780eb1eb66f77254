package component

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"media-transcode-service/ddd/application/cqe"
	appsvc "media-transcode-service/ddd/application/service"
	"media-transcode-service/pkg/config"
	pkgkafka "media-transcode-service/pkg/kafka"
	"media-transcode-service/pkg/logger"
	"media-transcode-service/pkg/manager"
)

func init() {
	manager.RegisterComponentPlugin(&IngestConsumerPlugin{})
}

// IngestConsumerPlugin 订阅新视频落库事件并入队转码作业
type IngestConsumerPlugin struct{}

func (p *IngestConsumerPlugin) Name() string { return "ingestConsumer" }

func (p *IngestConsumerPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	var app appsvc.TranscodeApp
	if deps != nil {
		if v, ok := deps.TranscodeAppService.(appsvc.TranscodeApp); ok {
			app = v
		}
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &ingestConsumer{app: app, cfg: cfg}
}

// ingestMessage 上游目录服务发出的视频落库事件
type ingestMessage struct {
	VideoUUID string `json:"video_uuid"`
	VideoURL  string `json:"video_url"`
	MimeType  string `json:"mime_type"`
	Bucket    string `json:"bucket"`
}

type ingestConsumer struct {
	app    appsvc.TranscodeApp
	cfg    *config.Config
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *ingestConsumer) Start() error {
	if c.cfg == nil || !c.cfg.Kafka.Enabled || c.app == nil {
		logger.Info("Ingest consumer disabled", nil)
		return nil
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	topic := c.cfg.Kafka.Topics.VideoIngested
	groupID := c.cfg.Kafka.GroupID
	reader := pkgkafka.DefaultClient().Reader(topic, groupID)

	go func() {
		defer reader.Close()
		logger.Infof("Ingest consumer started topic=%s group=%s", topic, groupID)
		for {
			msg, err := reader.ReadMessage(c.ctx)
			if err != nil {
				if c.ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) || strings.Contains(err.Error(), "EOF") {
					logger.Debug("Kafka reader EOF", nil)
				} else {
					logger.Warnf("Kafka read error error=%v", err)
				}
				continue
			}

			var m ingestMessage
			if err := json.Unmarshal(msg.Value, &m); err != nil {
				logger.Warnf("ingest message unmarshal error error=%v", err)
				continue
			}
			if m.VideoUUID == "" {
				continue
			}

			logger.Infof("ingest event received video_uuid=%s mime=%s", m.VideoUUID, m.MimeType)
			cmd := &cqe.EnqueueTranscodeCmd{
				VideoUUID: m.VideoUUID,
				SourceURL: m.VideoURL,
				MimeType:  m.MimeType,
				Bucket:    m.Bucket,
			}
			if _, err := c.app.Enqueue(context.Background(), cmd); err != nil {
				// 队列满或不需要转码都只记日志，消息不重投。
				logger.Warnf("ingest enqueue skipped video_uuid=%s error=%v", m.VideoUUID, err)
			}
		}
	}()
	return nil
}

func (c *ingestConsumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *ingestConsumer) GetName() string { return "ingestConsumer" }
