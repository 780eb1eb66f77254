package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/internal/resource"
	"media-transcode-service/pkg/config"
)

func setupStorageTest(t *testing.T) *MinioStorage {
	t.Helper()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			Media: config.BucketConfig{
				Endpoint:   "minio.local:9000",
				BucketName: "media-bucket",
				KeyPrefix:  "videos/",
				PublicBase: "https://cdn.example.com/media",
			},
			Archive: config.BucketConfig{
				Endpoint:   "minio.local:9000",
				BucketName: "archive-bucket",
				KeyPrefix:  "archive/",
				UseSSL:     true,
			},
		},
	}
	config.SetGlobalConfig(cfg)
	t.Cleanup(func() { config.SetGlobalConfig(nil) })

	return &MinioStorage{minioResource: resource.DefaultMinioResource()}
}

func TestExtractKey(t *testing.T) {
	s := setupStorageTest(t)

	tests := []struct {
		name   string
		url    string
		bucket vo.StorageBucket
		want   string
	}{
		{"public base url", "https://cdn.example.com/media/videos/a.ts", vo.BucketMedia, "videos/a.ts"},
		{"signed url query stripped", "https://cdn.example.com/media/videos/a.ts?X-Amz-Signature=abc&X-Amz-Expires=300", vo.BucketMedia, "videos/a.ts"},
		{"bare relative key", "videos/a.ts", vo.BucketMedia, "videos/a.ts"},
		{"leading slash", "/videos/a.ts", vo.BucketMedia, "videos/a.ts"},
		{"legacy endpoint url with bucket segment", "http://minio.local:9000/media-bucket/videos/a.ts", vo.BucketMedia, "videos/a.ts"},
		{"archive bucket", "archive/2024/a.mkv", vo.BucketArchive, "archive/2024/a.mkv"},
		{"prefix mismatch", "https://cdn.example.com/media/uploads/a.ts", vo.BucketMedia, ""},
		{"foreign host without known prefix", "https://evil.example.com/a.ts", vo.BucketMedia, ""},
		{"wrong bucket prefix", "archive/2024/a.mkv", vo.BucketMedia, ""},
		{"empty url", "", vo.BucketMedia, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ExtractKey(tt.url, tt.bucket))
		})
	}
}

func TestPublicURL(t *testing.T) {
	s := setupStorageTest(t)

	// 有公开域名的桶走域名
	assert.Equal(t,
		"https://cdn.example.com/media/videos/a.mp4",
		s.PublicURL("videos/a.mp4", vo.BucketMedia))

	// 无公开域名的桶回落到endpoint+桶名
	assert.Equal(t,
		"https://minio.local:9000/archive-bucket/archive/a.mp4",
		s.PublicURL("archive/a.mp4", vo.BucketArchive))
}

func TestPublicURLRoundTrip(t *testing.T) {
	s := setupStorageTest(t)

	for _, key := range []string{"videos/a.mp4", "videos/nested/dir/b.mp4"} {
		url := s.PublicURL(key, vo.BucketMedia)
		assert.Equal(t, key, s.ExtractKey(url, vo.BucketMedia))
	}
}

func TestContentTypeFromExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"out.mp4", "video/mp4"},
		{"thumb.JPG", "image/jpeg"},
		{"thumb.png", "image/png"},
		{"stream.ts", "video/mp2t"},
		{"clip.mkv", "video/x-matroska"},
		{"unknown.dat", "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, contentTypeFromExtension(tt.filename), tt.filename)
	}
}

func TestStripQuery(t *testing.T) {
	assert.Equal(t, "videos/a.ts", stripQuery("videos/a.ts?sig=1"))
	assert.Equal(t, "videos/a.ts", stripQuery("videos/a.ts"))
}
