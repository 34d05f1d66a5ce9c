package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide structured logger. It is a no-op logger until Initialize runs,
// so packages can log from tests without setup.
var Log = zap.NewNop()

// Options controls where and how verbosely the server logs.
type Options struct {
	Level string // debug, info, warn, error
	File  string // rotated JSON log; empty disables the file core
	// MaxSizeMB, MaxBackups and MaxAgeDays tune lumberjack rotation.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Initialize builds a tee of a human-readable console core and a rotated JSON file core.
func Initialize(opts Options) error {
	level := parseLogLevel(opts.Level)

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(os.Stdout),
		level,
	)
	cores := []zapcore.Core{consoleCore}

	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 100),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 7),
			Compress:   true,
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	Log.Info("Logger initialized",
		zap.String("level", level.String()),
		zap.String("file", opts.File),
	)
	return nil
}

// Close flushes buffered entries.
func Close() error {
	if Log != nil {
		return Log.Sync()
	}
	return nil
}

func parseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// WarnWithFields logs a warning carrying err when it is non-nil.
func WarnWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Warn(msg, fields...)
}

// ErrorWithFields logs an error carrying err when it is non-nil.
func ErrorWithFields(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Log.Error(msg, fields...)
}

func WithRequestID(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

func WithUserID(userID string) zap.Field {
	return zap.String("user_id", userID)
}

func WithProjectID(projectID string) zap.Field {
	return zap.String("project_id", projectID)
}

func WithGroupID(groupID string) zap.Field {
	return zap.String("group_id", groupID)
}

func WithDiscussionID(discussionID string) zap.Field {
	return zap.String("discussion_id", discussionID)
}

func WithIP(ip string) zap.Field {
	return zap.String("ip", ip)
}

func WithStatus(status int) zap.Field {
	return zap.Int("status", status)
}
