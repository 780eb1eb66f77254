package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"media-transcode-service/pkg/config"
)

// Logger 封装logrus，统一日志出口。
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// NewLogger 根据配置创建日志服务
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level := logrus.InfoLevel
	if cfg != nil {
		if parsed, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)

	if cfg != nil && cfg.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000"})
	}

	logger := &Logger{entry: l}

	if cfg != nil && cfg.Log.Output == "file" && cfg.Log.Filename != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.Filename), 0o755); err == nil {
			if f, err := os.OpenFile(cfg.Log.Filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
				logger.file = f
				l.SetOutput(io.MultiWriter(os.Stdout, f))
				return logger
			}
		}
		fmt.Fprintf(os.Stderr, "[WARN] fallback to stdout, cannot open log file: %s\n", cfg.Log.Filename)
	}

	l.SetOutput(os.Stdout)
	return logger
}

// Raw 暴露底层logrus实例
func (l *Logger) Raw() *logrus.Logger {
	return l.entry
}

// Close 关闭日志文件句柄
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

// SetGlobalLogger 设置全局日志器
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

func std() *logrus.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger.entry
	}
	return logrus.StandardLogger()
}

// Debug 输出调试日志，fields为结构化字段。
func Debug(msg string, fields ...map[string]interface{}) {
	std().WithFields(merge(fields)).Debug(msg)
}

// Info 输出信息日志
func Info(msg string, fields ...map[string]interface{}) {
	std().WithFields(merge(fields)).Info(msg)
}

// Warn 输出警告日志
func Warn(msg string, fields ...map[string]interface{}) {
	std().WithFields(merge(fields)).Warn(msg)
}

// Error 输出错误日志
func Error(msg string, fields ...map[string]interface{}) {
	std().WithFields(merge(fields)).Error(msg)
}

// Fatal 输出致命错误并退出进程
func Fatal(msg string, fields ...map[string]interface{}) {
	std().WithFields(merge(fields)).Fatal(msg)
}

func Debugf(format string, args ...interface{}) {
	std().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	std().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	std().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	std().Errorf(format, args...)
}

func merge(fields []map[string]interface{}) logrus.Fields {
	out := logrus.Fields{}
	for _, m := range fields {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
