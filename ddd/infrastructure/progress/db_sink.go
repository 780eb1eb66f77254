package progress

import (
	"context"
	"sync"

	"media-transcode-service/ddd/domain/port"
	"media-transcode-service/ddd/domain/repo"
	"media-transcode-service/pkg/logger"
)

// 进度每推进5个百分点才落库一次，终值100总是落库。
const persistStep = 5

// DBSink 将进度节流后写入视频记录表。
type DBSink struct {
	repo repo.VideoRecordRepository

	mu   sync.Mutex
	last map[string]int // videoUUID -> 最近一次落库的百分比
}

func NewDBSink(r repo.VideoRecordRepository) port.ProgressSink {
	return &DBSink{
		repo: r,
		last: make(map[string]int),
	}
}

// SaveProgress 持久化进度。只有终值100或相对上次落库推进≥5个点才真正写库。
func (s *DBSink) SaveProgress(ctx context.Context, videoUUID string, progress int) error {
	if s.repo == nil || videoUUID == "" {
		return nil
	}

	if !s.shouldPersist(videoUUID, progress) {
		return nil
	}

	if err := s.repo.UpdateProgress(ctx, videoUUID, progress); err != nil {
		// 进度写失败不影响转码本身
		logger.Warnf("progress persist failed video_uuid=%s progress=%d error=%v", videoUUID, progress, err)
		s.rollback(videoUUID, progress)
		return err
	}
	return nil
}

// Flush 作业结束后清理节流状态
func (s *DBSink) Flush(videoUUID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, videoUUID)
}

func (s *DBSink) shouldPersist(videoUUID string, progress int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, seen := s.last[videoUUID]
	if progress == 100 || !seen || progress-last >= persistStep {
		s.last[videoUUID] = progress
		return true
	}
	return false
}

// rollback 写库失败时撤销记账，下次回调可重试同一档位。
func (s *DBSink) rollback(videoUUID string, progress int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.last[videoUUID]; ok && last == progress {
		delete(s.last, videoUUID)
	}
}
