package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-transcode-service/ddd/domain/entity"
	"media-transcode-service/ddd/domain/gateway"
	"media-transcode-service/ddd/domain/port"
	"media-transcode-service/ddd/domain/vo"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/errno"
)

// --- 测试替身 ---

type fakeVideoRepo struct {
	rec *entity.VideoRecord

	claimOK     bool
	claimErr    error
	claimCalls  int
	claimWorker string

	progress []int

	readyURL    string
	readyCalled bool

	failedMsg    string
	failedCalled bool

	thumbURL     string
	thumbWriteOK bool

	statusUpdates []vo.VideoStatus
}

func (r *fakeVideoRepo) GetVideoRecord(ctx context.Context, videoUUID string) (*entity.VideoRecord, error) {
	return r.rec, nil
}
func (r *fakeVideoRepo) QueryEligible(ctx context.Context, limit int) ([]*entity.VideoRecord, error) {
	return nil, nil
}
func (r *fakeVideoRepo) ClaimForProcessing(ctx context.Context, videoUUID, workerID string) (bool, error) {
	r.claimCalls++
	r.claimWorker = workerID
	return r.claimOK, r.claimErr
}
func (r *fakeVideoRepo) UpdateProgress(ctx context.Context, videoUUID string, progress int) error {
	r.progress = append(r.progress, progress)
	return nil
}
func (r *fakeVideoRepo) MarkReady(ctx context.Context, videoUUID, publicURL string) error {
	r.readyCalled = true
	r.readyURL = publicURL
	return nil
}
func (r *fakeVideoRepo) MarkFailed(ctx context.Context, videoUUID, message string) error {
	r.failedCalled = true
	r.failedMsg = message
	return nil
}
func (r *fakeVideoRepo) SetThumbnailIfEmpty(ctx context.Context, videoUUID, thumbnailURL string) (bool, error) {
	if !r.thumbWriteOK {
		return false, nil
	}
	r.thumbURL = thumbnailURL
	return true, nil
}
func (r *fakeVideoRepo) ReleaseStale(ctx context.Context, olderThanSeconds int64) (int64, error) {
	return 0, nil
}
func (r *fakeVideoRepo) UpdateStatus(ctx context.Context, videoUUID string, status vo.VideoStatus) error {
	r.statusUpdates = append(r.statusUpdates, status)
	return nil
}

type fakeStorage struct {
	publicBase string

	downloadErr   error
	downloads     int
	uploads       int
	uploadedKeys  []string
	uploadedTypes []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{publicBase: "https://cdn.example.com/media"}
}

func (s *fakeStorage) SignedDownloadURL(ctx context.Context, objectKey string, bucket vo.StorageBucket, ttl time.Duration) (string, error) {
	return "https://signed.example.com/" + objectKey + "?sig=1", nil
}
func (s *fakeStorage) SignedUploadPartURL(ctx context.Context, objectKey, uploadID string, partNumber int, bucket vo.StorageBucket, ttl time.Duration) (string, error) {
	return "", fmt.Errorf("not implemented")
}
func (s *fakeStorage) UploadLocalFile(ctx context.Context, localPath, objectKey, contentType string, bucket vo.StorageBucket) (string, error) {
	if _, err := os.Stat(localPath); err != nil {
		return "", &gateway.UploadError{ObjectKey: objectKey, Cause: err}
	}
	s.uploads++
	s.uploadedKeys = append(s.uploadedKeys, objectKey)
	s.uploadedTypes = append(s.uploadedTypes, contentType)
	return s.publicBase + "/" + objectKey, nil
}
func (s *fakeStorage) DownloadToFile(ctx context.Context, signedURL, localPath string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	s.downloads++
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, []byte("source-bytes"), 0o644)
}
func (s *fakeStorage) ExtractKey(storedURL string, bucket vo.StorageBucket) string {
	key := strings.TrimPrefix(storedURL, s.publicBase+"/")
	if strings.HasPrefix(key, "videos/") {
		return key
	}
	return ""
}
func (s *fakeStorage) PublicURL(objectKey string, bucket vo.StorageBucket) string {
	return s.publicBase + "/" + objectKey
}

type fakeEncoder struct {
	err      error
	runs     int
	inputs   []string
	progress []int
}

func (e *fakeEncoder) RunEncode(ctx context.Context, inputSource, outputPath string, opts port.EncodeOptions) error {
	e.runs++
	e.inputs = append(e.inputs, inputSource)
	if e.err != nil {
		return e.err
	}
	if err := os.WriteFile(outputPath, []byte("encoded-bytes"), 0o644); err != nil {
		return err
	}
	if opts.ProgressCb != nil {
		for _, p := range []int{30, 99, 100} {
			opts.ProgressCb(p)
		}
	}
	return nil
}

type fakeFrames struct {
	duration     float64
	extractErr   error
	extractCalls int
	lastAt       float64
}

func (f *fakeFrames) ExtractFrame(ctx context.Context, inputSource, outputPath string, atSeconds float64) error {
	f.extractCalls++
	f.lastAt = atSeconds
	if f.extractErr != nil {
		return f.extractErr
	}
	return os.WriteFile(outputPath, []byte("jpeg-bytes"), 0o644)
}
func (f *fakeFrames) ProbeDuration(ctx context.Context, inputSource string) float64 {
	return f.duration
}

type fakeLease struct {
	acquireOK  bool
	acquireErr error
	acquired   int
	released   int
}

func (l *fakeLease) Acquire(ctx context.Context, videoUUID, workerID string, ttl time.Duration) (bool, error) {
	l.acquired++
	return l.acquireOK, l.acquireErr
}
func (l *fakeLease) Release(ctx context.Context, videoUUID string) error {
	l.released++
	return nil
}

type fakeSink struct {
	saved   []int
	flushed []string
}

func (s *fakeSink) SaveProgress(ctx context.Context, videoUUID string, progress int) error {
	s.saved = append(s.saved, progress)
	return nil
}
func (s *fakeSink) Flush(videoUUID string) {
	s.flushed = append(s.flushed, videoUUID)
}

type fakePublisher struct {
	events []gateway.TranscodeEvent
}

func (p *fakePublisher) PublishTranscoded(ctx context.Context, event gateway.TranscodeEvent) error {
	p.events = append(p.events, event)
	return nil
}

// --- 组装 ---

type serviceFixture struct {
	repo      *fakeVideoRepo
	storage   *fakeStorage
	encoder   *fakeEncoder
	sink      *fakeSink
	lease     *fakeLease
	publisher *fakePublisher
	cfg       *config.Config
	svc       TranscodeService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	cfg := &config.Config{}
	cfg.Normalize()
	cfg.Worker.WorkerID = "worker-test"
	cfg.Transcode.FFmpeg.TempDir = t.TempDir()

	f := &serviceFixture{
		repo:      &fakeVideoRepo{claimOK: true, thumbWriteOK: true},
		storage:   newFakeStorage(),
		encoder:   &fakeEncoder{},
		sink:      &fakeSink{},
		lease:     &fakeLease{acquireOK: true},
		publisher: &fakePublisher{},
		cfg:       cfg,
	}
	f.svc = NewTranscodeService(f.repo, f.storage, f.encoder, f.sink, f.lease, nil, f.publisher, cfg)
	return f
}

func tempFileCount(t *testing.T, dir string) int {
	t.Helper()
	count := 0
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			count++
		}
		return nil
	})
	return count
}

// --- 用例 ---

func TestExecuteJobSuccess(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	err := f.svc.ExecuteJob(ctx, "vid-1", "https://cdn.example.com/media/videos/a.ts", vo.BucketMedia)
	require.NoError(t, err)

	assert.Equal(t, 1, f.repo.claimCalls)
	assert.Equal(t, "worker-test", f.repo.claimWorker)
	assert.Equal(t, 1, f.storage.downloads)
	assert.Equal(t, 1, f.encoder.runs)

	// 目标Key换成.mp4扩展，公开URL落终态
	assert.True(t, f.repo.readyCalled)
	assert.Equal(t, "https://cdn.example.com/media/videos/a.mp4", f.repo.readyURL)
	assert.Equal(t, []string{"videos/a.mp4"}, f.storage.uploadedKeys)
	assert.Equal(t, []string{"video/mp4"}, f.storage.uploadedTypes)

	// 进度回调透传到sink，作业结束后清理节流状态
	assert.Equal(t, []int{30, 99, 100}, f.sink.saved)
	assert.Equal(t, []string{"vid-1"}, f.sink.flushed)

	// 租约成对获取与释放
	assert.Equal(t, 1, f.lease.acquired)
	assert.Equal(t, 1, f.lease.released)

	// 完成事件
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, "vid-1", f.publisher.events[0].VideoUUID)
	assert.Equal(t, vo.VideoStatusReady.String(), f.publisher.events[0].Status)

	// 临时文件全部清理
	assert.Equal(t, 0, tempFileCount(t, f.cfg.Transcode.FFmpeg.TempDir))
}

func TestExecuteJobUnresolvableKey(t *testing.T) {
	f := newServiceFixture(t)

	err := f.svc.ExecuteJob(context.Background(), "vid-1", "https://unknown.example.com/x.bin", vo.BucketMedia)
	require.Error(t, err)

	var be *errno.BizError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, errno.ErrKeyResolution, be.Errno)

	// Key都还原不出来时不应领取作业
	assert.Equal(t, 0, f.repo.claimCalls)
}

func TestExecuteJobNotClaimable(t *testing.T) {
	f := newServiceFixture(t)
	f.repo.claimOK = false

	err := f.svc.ExecuteJob(context.Background(), "vid-1", "videos/a.ts", vo.BucketMedia)
	require.Error(t, err)

	var be *errno.BizError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, errno.ErrAlreadyProcessing, be.Errno)

	assert.Equal(t, 0, f.storage.downloads)
	assert.Equal(t, 0, f.encoder.runs)
}

func TestExecuteJobLeaseHeldElsewhere(t *testing.T) {
	f := newServiceFixture(t)
	f.lease.acquireOK = false

	err := f.svc.ExecuteJob(context.Background(), "vid-1", "videos/a.ts", vo.BucketMedia)
	require.Error(t, err)

	var be *errno.BizError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, errno.ErrAlreadyProcessing, be.Errno)
	assert.Equal(t, 0, f.encoder.runs)

	// CAS已领取过的记录要退回pending，不能等reaper收尸
	assert.Equal(t, []vo.VideoStatus{vo.VideoStatusPending}, f.repo.statusUpdates)
}

func TestExecuteJobLeaseErrorFallsBackToDBClaim(t *testing.T) {
	f := newServiceFixture(t)
	f.lease.acquireOK = false
	f.lease.acquireErr = fmt.Errorf("redis unavailable")

	// 租约服务不可用时以数据库CAS为准继续执行
	err := f.svc.ExecuteJob(context.Background(), "vid-1", "videos/a.ts", vo.BucketMedia)
	require.NoError(t, err)
	assert.Equal(t, 1, f.encoder.runs)
}

func TestExecuteJobEncodeFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.encoder.err = &port.EncodeError{ExitCode: 1, Output: "Invalid data found when processing input"}

	err := f.svc.ExecuteJob(context.Background(), "vid-1", "videos/a.ts", vo.BucketMedia)
	require.Error(t, err)

	// 编码错误原样向上传播，终态记账由触发方负责
	var encErr *port.EncodeError
	require.True(t, errors.As(err, &encErr))
	assert.Equal(t, 1, encErr.ExitCode)
	assert.False(t, f.repo.readyCalled)
	assert.False(t, f.repo.failedCalled)

	// 失败路径同样清理临时文件并释放租约
	assert.Equal(t, 0, tempFileCount(t, f.cfg.Transcode.FFmpeg.TempDir))
	assert.Equal(t, 1, f.lease.released)
	assert.Equal(t, []string{"vid-1"}, f.sink.flushed)
}

func TestExecuteJobDownloadFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.storage.downloadErr = &gateway.DownloadError{URL: "x", Cause: fmt.Errorf("status 403")}

	err := f.svc.ExecuteJob(context.Background(), "vid-1", "videos/a.ts", vo.BucketMedia)
	require.Error(t, err)

	var dlErr *gateway.DownloadError
	assert.True(t, errors.As(err, &dlErr))
	assert.Equal(t, 0, f.encoder.runs)
	assert.False(t, f.repo.readyCalled)
}

func TestDeriveDestinationKey(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"ts to mp4", "videos/a.ts", "videos/a.mp4"},
		{"mkv to mp4", "videos/nested/b.mkv", "videos/nested/b.mp4"},
		{"uppercase extension", "videos/c.TS", "videos/c.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveDestinationKey(tt.source))
		})
	}
}

func TestDeriveDestinationKeyAvoidsOverwritingSource(t *testing.T) {
	// 源已是.mp4或无扩展名时必须换新Key，不得覆盖源对象。
	for _, source := range []string{"videos/a.mp4", "videos/noext"} {
		got := deriveDestinationKey(source)
		assert.NotEqual(t, source, got)
		assert.True(t, strings.HasPrefix(got, "videos/"), got)
		assert.True(t, strings.HasSuffix(got, ".mp4"), got)
	}

	// 无目录的源Key不应拼出"./"前缀
	got := deriveDestinationKey("toplevel.mp4")
	assert.False(t, strings.HasPrefix(got, "./"), got)
	assert.True(t, strings.HasSuffix(got, ".mp4"), got)
}

func TestSourceExtension(t *testing.T) {
	assert.Equal(t, ".ts", sourceExtension("videos/a.ts"))
	assert.Equal(t, ".bin", sourceExtension("videos/noext"))
}
