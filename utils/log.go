package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Log struct {
	*slog.LevelVar
	*slog.Logger
}

// Logger is the global logger instance
var Logger *Log

func init() {
	Logger = NewLog(os.Stderr)
	Logger.SetLogLevel("info")
}

// NewLog 创建一个写入 w 的文本日志
func NewLog(w io.Writer) *Log {
	logLevel := &slog.LevelVar{}
	opts := &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{Key: "timestamp", Value: slog.TimeValue(a.Value.Time())}
			}
			return a
		},
	}
	return &Log{
		LevelVar: logLevel,
		Logger:   slog.New(slog.NewTextHandler(w, opts)),
	}
}

func (l *Log) SetLogLevel(level string) {
	level = strings.ToLower(level)
	switch level {
	case "debug":
		l.Set(slog.LevelDebug)
	case "info":
		l.Set(slog.LevelInfo)
	case "warn":
		l.Set(slog.LevelWarn)
	case "error":
		l.Set(slog.LevelError)
	}
}

func (l *Log) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1) // Exit the program with a non-zero status
}
