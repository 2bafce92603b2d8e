package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely a process logs.
type Options struct {
	// Directory receives a rotated <Name>.log file. Empty disables file output.
	Directory string
	// Name is the log file base name, usually the binary name.
	Name string
	// Level is one of debug, info, warn, error.
	Level string
	// MaxSizeMB is the rotation threshold for the log file.
	MaxSizeMB int
	// MaxBackups is how many rotated files are kept.
	MaxBackups int
}

// NewLogger builds a sugared zap logger writing console output to stdout and,
// when a directory is configured, JSON lines to a rotating file.
func NewLogger(opts Options) (*zap.SugaredLogger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level '%s': %w", opts.Level, err)
		}
	}

	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), zapcore.Lock(os.Stdout), level),
	}

	if opts.Directory != "" {
		if err := os.MkdirAll(opts.Directory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory '%s': %w", opts.Directory, err)
		}
		name := opts.Name
		if name == "" {
			name = "safewatch"
		}
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		maxBackups := opts.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 5
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Directory, name+".log"),
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return logger.Sugar(), nil
}

// StdLogger adapts a zap logger for libraries that expect a *log.Logger
// (gorm's logger, http.Server.ErrorLog).
func StdLogger(logger *zap.SugaredLogger) *log.Logger {
	return zap.NewStdLog(logger.Desugar())
}

// Sync flushes buffered entries. Errors from syncing stdout are ignored.
func Sync(logger *zap.SugaredLogger) {
	_ = logger.Sync()
}
