// Package logutil wraps zap the way the teacher's pkg/logutil does: a single
// process-wide *zap.Logger, swappable at init time, with structured fields
// for the connection/phase/generator a log line pertains to.
package logutil

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// SetGlobalLogger installs l as the process-wide logger.
func SetGlobalLogger(l *zap.Logger) {
	global.Store(l)
}

// GetGlobalLogger returns the process-wide logger, never nil.
func GetGlobalLogger() *zap.Logger {
	return global.Load()
}

// FileConfig configures rotation for a file-backed logger.
type FileConfig struct {
	Path       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewFileLogger builds a *zap.Logger writing JSON lines through a rotating
// lumberjack writer, following the level string from config ("debug",
// "info", "warn", "error").
func NewFileLogger(cfg FileConfig) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    maxOr(cfg.MaxSizeMB, 100),
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	core := zapcore.NewCore(encoder, zapcore.AddSync(rotator), lvl)
	return zap.New(core), nil
}

func maxOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// ConnectionLogger returns a child logger tagged with a connection id. The
// executor does not call it; it logs through GetGlobalLogger.
func ConnectionLogger(base *zap.Logger, connID uint64) *zap.Logger {
	return base.With(zap.Uint64("conn", connID))
}

// PhraseLogger further tags a connection logger with the phrase kind being
// executed (select, estimate, infer, simulate, analyze, mml, ddl, txn).
func PhraseLogger(base *zap.Logger, phrase string) *zap.Logger {
	return base.With(zap.String("phrase", phrase))
}
