package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	level   = &slog.LevelVar{}
	current atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelError) // 默认只输出错误, --debug 时调低
	current.Store(New(os.Stderr))
}

// New 创建写入 w 的文本日志, 与全局 logger 共享级别
func New(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: slog.TimeValue(a.Value.Time())}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// L 返回全局 logger
func L() *slog.Logger {
	return current.Load()
}

// SetOutput 替换全局 logger 的输出, mcp 模式下 stdout 被协议占用
func SetOutput(w io.Writer) {
	current.Store(New(w))
}

// SetLogLevel 设置全局日志级别, 无法识别的级别被忽略
func SetLogLevel(name string) bool {
	switch strings.ToLower(name) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return false
	}
	return true
}
