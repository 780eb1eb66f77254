package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"media-transcode-service/ddd/domain/vo"
)

func TestNeedsTranscode(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		mime   string
		status vo.VideoStatus
		want   bool
	}{
		{"ts by mime", "videos/a.bin", "video/mp2t", vo.VideoStatusPending, true},
		{"dlna ts mime", "videos/a", "video/vnd.dlna.mpeg-tts", vo.VideoStatusPending, true},
		{"mkv by mime", "videos/a", "video/x-matroska", vo.VideoStatusPending, true},
		{"mime case insensitive", "videos/a", "VIDEO/MP2T", vo.VideoStatusPending, true},
		{"ts by extension", "videos/a.ts", "", vo.VideoStatusPending, true},
		{"extension behind query", "https://cdn.example.com/videos/a.mkv?X-Amz-Signature=zz", "", vo.VideoStatusPending, true},
		{"mov extension", "videos/clip.mov", "application/octet-stream", vo.VideoStatusPending, true},
		{"plain mp4", "videos/a.mp4", "video/mp4", vo.VideoStatusPending, false},
		{"ready mp4 never retranscodes", "videos/a.ts", "video/mp4", vo.VideoStatusReady, false},
		{"ready but still ts mime", "videos/a.ts", "video/mp2t", vo.VideoStatusReady, true},
		{"unknown container", "videos/a.xyz", "application/pdf", vo.VideoStatusPending, false},
		{"empty record", "", "", vo.VideoStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewVideoRecord("uuid-1", tt.url, tt.mime, tt.status, vo.BucketMedia)
			assert.Equal(t, tt.want, rec.NeedsTranscode())
		})
	}
}

func TestTranscodeProgressDefaultsToZero(t *testing.T) {
	rec := NewVideoRecord("uuid-1", "videos/a.ts", "video/mp2t", vo.VideoStatusPending, vo.BucketMedia)
	assert.Equal(t, 0, rec.TranscodeProgress())

	rec.SetTranscodeProgress(42)
	assert.Equal(t, 42, rec.TranscodeProgress())
}

func TestHasThumbnail(t *testing.T) {
	rec := NewVideoRecord("uuid-1", "videos/a.ts", "video/mp2t", vo.VideoStatusPending, vo.BucketMedia)
	assert.False(t, rec.HasThumbnail())
	assert.Equal(t, "", rec.ThumbnailURL())

	rec.SetThumbnailURL("")
	assert.False(t, rec.HasThumbnail())

	rec.SetThumbnailURL("https://cdn.example.com/media/thumbnails/uuid-1.jpg")
	assert.True(t, rec.HasThumbnail())
	assert.Equal(t, "https://cdn.example.com/media/thumbnails/uuid-1.jpg", rec.ThumbnailURL())
}
