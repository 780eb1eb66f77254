package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()

	assert.Equal(t, "ffmpeg", cfg.Transcode.FFmpeg.BinaryPath)
	assert.Equal(t, "ffprobe", cfg.Transcode.FFmpeg.ProbePath)
	assert.Equal(t, "libx264", cfg.Transcode.FFmpeg.VideoCodec)
	assert.Equal(t, "medium", cfg.Transcode.FFmpeg.VideoPreset)
	assert.Equal(t, 23, cfg.Transcode.FFmpeg.VideoCRF)
	assert.Equal(t, "/tmp/transcode", cfg.Transcode.FFmpeg.TempDir)
	assert.Equal(t, time.Hour, cfg.Transcode.FFmpeg.Timeout)
	assert.Equal(t, time.Hour, cfg.Transcode.SignedURLTTL)

	assert.Equal(t, "videos/", cfg.Storage.Media.KeyPrefix)
	assert.Equal(t, "archive/", cfg.Storage.Archive.KeyPrefix)

	assert.Equal(t, "transcode-worker", cfg.Worker.WorkerID)
	assert.Equal(t, 3*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Worker.IdleDelay)
	assert.Equal(t, 30*time.Second, cfg.Worker.FailureCooldown)
	assert.Equal(t, 2*time.Hour, cfg.Worker.LeaseTTL)
	assert.Equal(t, 5*time.Minute, cfg.Worker.ReapInterval)

	assert.Equal(t, 100, cfg.Queue.Capacity)
	assert.Equal(t, 640, cfg.Thumbnail.Width)

	assert.Equal(t, []string{"localhost:29092"}, cfg.Kafka.BootstrapServers)
	assert.Equal(t, "video.ingested", cfg.Kafka.Topics.VideoIngested)
	assert.Equal(t, "video.transcoded", cfg.Kafka.Topics.VideoTranscoded)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Transcode.FFmpeg.VideoCRF = 18
	cfg.Worker.PollInterval = time.Second
	cfg.Queue.Capacity = 5
	cfg.Normalize()

	assert.Equal(t, 18, cfg.Transcode.FFmpeg.VideoCRF)
	assert.Equal(t, time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 5, cfg.Queue.Capacity)
}

func TestNormalizeBucketAliases(t *testing.T) {
	cfg := &Config{}
	cfg.Storage.Media.AccessKey = "ak"
	cfg.Storage.Media.SecretKey = "sk"
	cfg.Storage.Media.KeyPrefix = "uploads"
	cfg.Normalize()

	// access_key/secret_key别名回填到规范字段
	assert.Equal(t, "ak", cfg.Storage.Media.AccessKeyID)
	assert.Equal(t, "sk", cfg.Storage.Media.SecretAccessKey)

	// Key前缀强制以斜杠结尾
	assert.Equal(t, "uploads/", cfg.Storage.Media.KeyPrefix)
}

func TestGetDSN(t *testing.T) {
	dc := &DatabaseConfig{
		Host:     "db.local",
		Port:     3306,
		Username: "svc",
		Password: "secret",
		Database: "media",
		Charset:  "utf8mb4",
	}
	assert.Equal(t,
		"svc:secret@tcp(db.local:3306)/media?charset=utf8mb4&parseTime=True&loc=Local",
		dc.GetDSN())
}

func TestGetRedisAddr(t *testing.T) {
	rc := &RedisConfig{Host: "redis.local", Port: 6379}
	assert.Equal(t, "redis.local:6379", rc.GetRedisAddr())
}
