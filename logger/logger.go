package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger defines the interface for logging throughout the application
type Logger interface {
	Info(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	Debug(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
}

// Options controls where and how logs are written
type Options struct {
	Format string // "text" or "json"
	Level  string
	File   string // optional rotated JSON log file

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ZapAdapter adapts a zap SugaredLogger to our Logger interface
type ZapAdapter struct {
	logger *zap.SugaredLogger
}

// New creates a new structured logger.
// Text format uses the development encoder (time level msg key=val), json the production one.
func New(opts Options) Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil || opts.Level == "" {
		level.SetLevel(zap.DebugLevel)
	}

	var encoder zapcore.Encoder
	if opts.Format == "json" {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)}

	if opts.File != "" {
		// File output is always JSON
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 7),
		})
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, fileWriter, level))
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel))
	return &ZapAdapter{logger: l.Sugar()}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() Logger {
	return &ZapAdapter{logger: zap.NewNop().Sugar()}
}

// Sync flushes buffered entries if the logger is zap-backed.
func Sync(l Logger) {
	if z, ok := l.(*ZapAdapter); ok {
		_ = z.logger.Sync()
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (l *ZapAdapter) Info(msg string, keyvals ...interface{}) {
	l.logger.Infow(msg, keyvals...)
}

func (l *ZapAdapter) Error(msg string, keyvals ...interface{}) {
	l.logger.Errorw(msg, keyvals...)
}

func (l *ZapAdapter) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debugw(msg, keyvals...)
}

func (l *ZapAdapter) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warnw(msg, keyvals...)
}
