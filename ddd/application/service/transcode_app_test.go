package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-transcode-service/ddd/application/cqe"
	"media-transcode-service/ddd/domain/entity"
	"media-transcode-service/ddd/domain/gateway"
	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/ddd/infrastructure/queue"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/errno"
)

type stubVideoRepo struct {
	rec    *entity.VideoRecord
	recErr error

	failedUUID string
	failedMsg  string
}

func (r *stubVideoRepo) GetVideoRecord(ctx context.Context, videoUUID string) (*entity.VideoRecord, error) {
	return r.rec, r.recErr
}
func (r *stubVideoRepo) QueryEligible(ctx context.Context, limit int) ([]*entity.VideoRecord, error) {
	return nil, nil
}
func (r *stubVideoRepo) ClaimForProcessing(ctx context.Context, videoUUID, workerID string) (bool, error) {
	return false, nil
}
func (r *stubVideoRepo) UpdateProgress(ctx context.Context, videoUUID string, progress int) error {
	return nil
}
func (r *stubVideoRepo) MarkReady(ctx context.Context, videoUUID, publicURL string) error { return nil }
func (r *stubVideoRepo) MarkFailed(ctx context.Context, videoUUID, message string) error {
	r.failedUUID = videoUUID
	r.failedMsg = message
	return nil
}
func (r *stubVideoRepo) SetThumbnailIfEmpty(ctx context.Context, videoUUID, thumbnailURL string) (bool, error) {
	return false, nil
}
func (r *stubVideoRepo) ReleaseStale(ctx context.Context, olderThanSeconds int64) (int64, error) {
	return 0, nil
}
func (r *stubVideoRepo) UpdateStatus(ctx context.Context, videoUUID string, status vo.VideoStatus) error {
	return nil
}

type stubTranscodeService struct {
	err   error
	calls int
	uuids []string
}

func (s *stubTranscodeService) ExecuteJob(ctx context.Context, videoUUID, sourceURL string, bucket vo.StorageBucket) error {
	s.calls++
	s.uuids = append(s.uuids, videoUUID)
	return s.err
}

type stubEventPublisher struct {
	events []gateway.TranscodeEvent
}

func (p *stubEventPublisher) PublishTranscoded(ctx context.Context, event gateway.TranscodeEvent) error {
	p.events = append(p.events, event)
	return nil
}

type appFixture struct {
	repo      *stubVideoRepo
	svc       *stubTranscodeService
	queue     *queue.MemoryJobQueue
	publisher *stubEventPublisher
	cfg       *config.Config
	app       TranscodeApp
}

func newAppFixture(t *testing.T, queueCapacity int) *appFixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.Normalize()
	cfg.Transcode.AllowInline = true

	f := &appFixture{
		repo:      &stubVideoRepo{},
		svc:       &stubTranscodeService{},
		queue:     queue.NewMemoryJobQueue(queueCapacity),
		publisher: &stubEventPublisher{},
		cfg:       cfg,
	}
	f.app = NewTranscodeApp(f.repo, f.svc, f.queue, f.publisher, cfg)
	return f
}

func bizCode(t *testing.T, err error) *errno.Errno {
	t.Helper()
	var be *errno.BizError
	require.True(t, errors.As(err, &be), "expected BizError, got %v", err)
	return be.Errno
}

func TestEnqueueValidation(t *testing.T) {
	f := newAppFixture(t, 4)
	ctx := context.Background()

	_, err := f.app.Enqueue(ctx, &cqe.EnqueueTranscodeCmd{SourceURL: "videos/a.ts"})
	assert.Equal(t, errno.ErrVideoUUIDRequired, bizCode(t, err))

	_, err = f.app.Enqueue(ctx, &cqe.EnqueueTranscodeCmd{VideoUUID: "vid-1", Bucket: "scratch"})
	assert.Equal(t, errno.ErrStorageBucketUnknown, bizCode(t, err))
}

func TestEnqueueAccepted(t *testing.T) {
	f := newAppFixture(t, 4)

	result, err := f.app.Enqueue(context.Background(), &cqe.EnqueueTranscodeCmd{
		VideoUUID: "vid-1",
		SourceURL: "videos/a.ts",
	})
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.Equal(t, 1, result.QueueDepth)

	job, err := f.queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vid-1", job.VideoUUID)
	assert.Equal(t, "videos/a.ts", job.SourceURL)
	assert.Equal(t, vo.BucketMedia, job.Bucket)
}

func TestEnqueueQueueFull(t *testing.T) {
	f := newAppFixture(t, 1)
	ctx := context.Background()

	_, err := f.app.Enqueue(ctx, &cqe.EnqueueTranscodeCmd{VideoUUID: "vid-1", SourceURL: "videos/a.ts"})
	require.NoError(t, err)

	_, err = f.app.Enqueue(ctx, &cqe.EnqueueTranscodeCmd{VideoUUID: "vid-2", SourceURL: "videos/b.ts"})
	assert.Equal(t, errno.ErrQueueFull, bizCode(t, err))
}

func TestEnqueueResolvesSourceFromRecord(t *testing.T) {
	f := newAppFixture(t, 4)
	f.repo.rec = entity.NewVideoRecord("vid-1", "videos/a.ts", "video/mp2t", vo.VideoStatusPending, vo.BucketArchive)

	// 未给源地址时从记录回查
	_, err := f.app.Enqueue(context.Background(), &cqe.EnqueueTranscodeCmd{VideoUUID: "vid-1"})
	require.NoError(t, err)

	job, err := f.queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "videos/a.ts", job.SourceURL)
	assert.Equal(t, vo.BucketArchive, job.Bucket)
}

func TestEnqueueUnknownVideo(t *testing.T) {
	f := newAppFixture(t, 4)

	_, err := f.app.Enqueue(context.Background(), &cqe.EnqueueTranscodeCmd{VideoUUID: "vid-404"})
	assert.Equal(t, errno.ErrVideoNotFound, bizCode(t, err))
}

func TestEnqueueTranscodeNotNeeded(t *testing.T) {
	f := newAppFixture(t, 4)
	f.repo.rec = entity.NewVideoRecord("vid-1", "videos/a.mp4", "video/mp4", vo.VideoStatusReady, vo.BucketMedia)

	_, err := f.app.Enqueue(context.Background(), &cqe.EnqueueTranscodeCmd{VideoUUID: "vid-1"})
	assert.Equal(t, errno.ErrTranscodeNotNeeded, bizCode(t, err))
}

func TestRunInlineDisabledByConfig(t *testing.T) {
	f := newAppFixture(t, 4)
	f.cfg.Transcode.AllowInline = false

	_, err := f.app.RunInline(context.Background(), &cqe.InlineTranscodeCmd{VideoUUID: "vid-1", SourceURL: "videos/a.ts"})
	assert.Equal(t, errno.ErrInlineDisabled, bizCode(t, err))
	assert.Equal(t, 0, f.svc.calls)
}

func TestRunInlineDisabledOnEphemeralRuntime(t *testing.T) {
	f := newAppFixture(t, 4)
	t.Setenv("K_SERVICE", "transcode-svc")

	// serverless运行时不能在响应后继续跑长任务
	_, err := f.app.RunInline(context.Background(), &cqe.InlineTranscodeCmd{VideoUUID: "vid-1", SourceURL: "videos/a.ts"})
	assert.Equal(t, errno.ErrInlineDisabled, bizCode(t, err))
	assert.Equal(t, 0, f.svc.calls)
}

func TestRunInlineSuccess(t *testing.T) {
	f := newAppFixture(t, 4)
	rec := entity.NewVideoRecord("vid-1", "https://cdn.example.com/media/videos/a.mp4", "video/mp4", vo.VideoStatusReady, vo.BucketMedia)
	f.repo.rec = rec

	result, err := f.app.RunInline(context.Background(), &cqe.InlineTranscodeCmd{VideoUUID: "vid-1", SourceURL: "videos/a.ts"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.svc.calls)
	assert.Equal(t, vo.VideoStatusReady.String(), result.Status)
	assert.Equal(t, "https://cdn.example.com/media/videos/a.mp4", result.VideoURL)
}

func TestRunInlineFailureMarksRecord(t *testing.T) {
	f := newAppFixture(t, 4)
	f.svc.err = fmt.Errorf("encode blew up")

	_, err := f.app.RunInline(context.Background(), &cqe.InlineTranscodeCmd{VideoUUID: "vid-1", SourceURL: "videos/a.ts"})
	assert.Equal(t, errno.ErrTranscodeFailed, bizCode(t, err))

	assert.Equal(t, "vid-1", f.repo.failedUUID)
	assert.Contains(t, f.repo.failedMsg, "encode blew up")

	// 失败事件与成功事件走同一个主题
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "vid-1", f.publisher.events[0].VideoUUID)
	assert.Equal(t, vo.VideoStatusFailed.String(), f.publisher.events[0].Status)
	assert.Contains(t, f.publisher.events[0].Error, "encode blew up")
}

func TestRunInlineNotNeededFromRecord(t *testing.T) {
	f := newAppFixture(t, 4)
	f.repo.rec = entity.NewVideoRecord("vid-1", "https://cdn.example.com/media/videos/a.mp4", "video/mp4", vo.VideoStatusReady, vo.BucketMedia)

	// 未给源地址且记录无需转码时应直接拒绝
	_, err := f.app.RunInline(context.Background(), &cqe.InlineTranscodeCmd{VideoUUID: "vid-1"})
	assert.Equal(t, errno.ErrTranscodeNotNeeded, bizCode(t, err))
	assert.Equal(t, 0, f.svc.calls)
}

func TestRunInlineAlreadyProcessingDoesNotClobber(t *testing.T) {
	f := newAppFixture(t, 4)
	f.svc.err = errno.NewBizError(errno.ErrAlreadyProcessing, nil)

	// 作业已被他人持有时不得覆盖在途状态
	_, err := f.app.RunInline(context.Background(), &cqe.InlineTranscodeCmd{VideoUUID: "vid-1", SourceURL: "videos/a.ts"})
	assert.Equal(t, errno.ErrAlreadyProcessing, bizCode(t, err))
	assert.Equal(t, "", f.repo.failedUUID)
	assert.Empty(t, f.publisher.events)
}

func TestGetProgress(t *testing.T) {
	f := newAppFixture(t, 4)
	rec := entity.NewVideoRecord("vid-1", "videos/a.ts", "video/mp2t", vo.VideoStatusProcessing, vo.BucketMedia)
	rec.SetTranscodeProgress(42)
	f.repo.rec = rec

	result, err := f.app.GetProgress(context.Background(), "vid-1")
	require.NoError(t, err)
	assert.Equal(t, "vid-1", result.VideoUUID)
	assert.Equal(t, vo.VideoStatusProcessing.String(), result.Status)
	assert.Equal(t, 42, result.Progress)
}

func TestGetProgressValidation(t *testing.T) {
	f := newAppFixture(t, 4)

	_, err := f.app.GetProgress(context.Background(), "")
	assert.Equal(t, errno.ErrVideoUUIDRequired, bizCode(t, err))

	_, err = f.app.GetProgress(context.Background(), "vid-404")
	assert.Equal(t, errno.ErrVideoNotFound, bizCode(t, err))
}
