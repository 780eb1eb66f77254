package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"media-transcode-service/ddd/domain/port"
	"media-transcode-service/pkg/config"
	"media-transcode-service/pkg/logger"
)

const diagnosticTailLines = 50

var (
	reDuration = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+\.?\d*)`)
	reTimePos  = regexp.MustCompile(`time=(\d+):(\d+):(\d+\.?\d*)`)
)

// FFmpegExecutor 通过本机ffmpeg子进程执行转码与抽帧。
// 进度从stderr逐行解析：首个Duration行确定分母，后续time=行计算百分比。
type FFmpegExecutor struct {
	cfg *config.Config
}

func NewFFmpegExecutor(cfg *config.Config) *FFmpegExecutor {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &FFmpegExecutor{cfg: cfg}
}

var _ port.EncodeExecutor = (*FFmpegExecutor)(nil)
var _ port.FrameExtractor = (*FFmpegExecutor)(nil)

// RunEncode 执行一次完整转码，输出H.264/AAC的MP4。
// inputSource可以是本地路径或签名URL，ffmpeg直接读取均可。
func (e *FFmpegExecutor) RunEncode(ctx context.Context, inputSource, outputPath string, opts port.EncodeOptions) error {
	ff := e.ffmpegConfig()

	if ff.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ff.Timeout)
		defer cancel()
	}

	args := []string{
		"-i", inputSource,
		"-c:v", ff.VideoCodec,
		"-preset", ff.VideoPreset,
		"-crf", strconv.Itoa(ff.VideoCRF),
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
	}
	if ff.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(ff.Threads))
	}
	args = append(args, "-y", outputPath)

	cmd := exec.CommandContext(ctx, ff.BinaryPath, args...)
	logger.Infof("ffmpeg encode input=%s output=%s", inputSource, outputPath)

	if err := e.runWithProgress(cmd, opts.ProgressCb); err != nil {
		return err
	}

	// 成功退出后报告一次最终100
	if opts.ProgressCb != nil {
		opts.ProgressCb(100)
	}
	return nil
}

// ExtractFrame 抽取一帧封面。首次尝试让ffmpeg自选代表帧，
// 产物缺失或为零字节时回退到片头简单抽帧。
func (e *FFmpegExecutor) ExtractFrame(ctx context.Context, inputSource, outputPath string, atSeconds float64) error {
	ff := e.ffmpegConfig()

	primary := []string{
		"-ss", formatSeconds(atSeconds),
		"-i", inputSource,
		"-vf", "thumbnail",
		"-frames:v", "1",
		"-y", outputPath,
	}
	if err := e.runWithProgress(exec.CommandContext(ctx, ff.BinaryPath, primary...), nil); err != nil {
		logger.Warnf("frame extraction primary attempt failed input=%s error=%v", inputSource, err)
	}

	if fileNonEmpty(outputPath) {
		return nil
	}

	// 回退：片头取帧，不做自选
	fallback := []string{
		"-ss", "0",
		"-i", inputSource,
		"-frames:v", "1",
		"-y", outputPath,
	}
	if err := e.runWithProgress(exec.CommandContext(ctx, ff.BinaryPath, fallback...), nil); err != nil {
		return err
	}
	if !fileNonEmpty(outputPath) {
		return fmt.Errorf("frame extraction produced empty output: %s", outputPath)
	}
	return nil
}

// ProbeDuration 调用ffprobe获取时长（秒），失败返回0。
func (e *FFmpegExecutor) ProbeDuration(ctx context.Context, inputSource string) float64 {
	ff := e.ffmpegConfig()
	cmd := exec.CommandContext(ctx, ff.ProbePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inputSource,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

// runWithProgress 启动子进程并逐行消费stderr。启动失败原样返回，
// 非零退出包装为EncodeError并携带诊断尾部。
func (e *FFmpegExecutor) runWithProgress(cmd *exec.Cmd, cb port.ProgressCallback) error {
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		// 二进制缺失、权限等启动错误与编码错误区分开
		return err
	}

	tracker := newProgressTracker(cb)
	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		scanEncoderOutput(stderr, tracker)
	}()

	waitErr := cmd.Wait()
	<-scanDone

	if waitErr != nil {
		exitCode := -1
		if ee, ok := waitErr.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return &port.EncodeError{
			ExitCode: exitCode,
			Output:   tracker.DiagnosticTail(),
		}
	}
	return nil
}

func (e *FFmpegExecutor) ffmpegConfig() *config.FFmpegConfig {
	cfg := e.cfg
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	if cfg == nil {
		return &config.FFmpegConfig{BinaryPath: "ffmpeg", ProbePath: "ffprobe", VideoCodec: "libx264", VideoPreset: "medium", VideoCRF: 23}
	}
	return &cfg.Transcode.FFmpeg
}

// scanEncoderOutput 逐行解析编码器stderr
func scanEncoderOutput(r io.Reader, t *progressTracker) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024), 1024*1024)
	for scanner.Scan() {
		t.ConsumeLine(scanner.Text())
	}
}

// progressTracker 维护单次编码的进度状态：分母、已报出的最大百分比、诊断尾部。
type progressTracker struct {
	cb          port.ProgressCallback
	durationSec float64
	lastPct     int
	tail        []string
}

func newProgressTracker(cb port.ProgressCallback) *progressTracker {
	return &progressTracker{cb: cb, lastPct: -1}
}

// ConsumeLine 处理一行诊断输出
func (t *progressTracker) ConsumeLine(line string) {
	// 首个Duration行确定分母，之后的不再覆盖
	if t.durationSec == 0 {
		if d, ok := parseDurationLine(line); ok {
			t.durationSec = d
		}
	}

	if pos, ok := parsePositionLine(line); ok {
		if pct, emit := t.offer(computeProgress(pos, t.durationSec)); emit && t.cb != nil {
			t.cb(pct)
		}
		return
	}

	t.tail = append(t.tail, line)
	if len(t.tail) > diagnosticTailLines {
		t.tail = t.tail[1:]
	}
}

// offer 只放行严格递增的百分比
func (t *progressTracker) offer(pct int) (int, bool) {
	if pct <= t.lastPct {
		return 0, false
	}
	t.lastPct = pct
	return pct, true
}

// DiagnosticTail 返回最近的诊断行，用于失败时的错误上下文。
func (t *progressTracker) DiagnosticTail() string {
	return strings.Join(t.tail, "\n")
}

// parseDurationLine 解析"Duration: HH:MM:SS.cc"，返回总秒数。
func parseDurationLine(line string) (float64, bool) {
	m := reDuration.FindStringSubmatch(line)
	if len(m) != 4 {
		return 0, false
	}
	return clockToSeconds(m[1], m[2], m[3])
}

// parsePositionLine 解析"time=HH:MM:SS.cc"，返回当前位置秒数。
func parsePositionLine(line string) (float64, bool) {
	m := reTimePos.FindStringSubmatch(line)
	if len(m) != 4 {
		return 0, false
	}
	return clockToSeconds(m[1], m[2], m[3])
}

func clockToSeconds(hh, mm, ss string) (float64, bool) {
	h, err1 := strconv.ParseFloat(hh, 64)
	m, err2 := strconv.ParseFloat(mm, 64)
	s, err3 := strconv.ParseFloat(ss, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return h*3600 + m*60 + s, true
}

// computeProgress 计算百分比：floor(min(pos/dur,1)*100)，进程未退出前封顶99。
func computeProgress(positionSec, durationSec float64) int {
	if durationSec <= 0 {
		return 0
	}
	ratio := positionSec / durationSec
	if ratio > 1 {
		ratio = 1
	}
	if ratio < 0 {
		ratio = 0
	}
	pct := int(math.Floor(ratio * 100))
	if pct > 99 {
		pct = 99
	}
	return pct
}

func formatSeconds(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	return strconv.FormatFloat(sec, 'f', 2, 64)
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
