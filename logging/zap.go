package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements Logger on top of a sugared zap logger. Key/value
// arguments map onto zap's loosely typed "w" methods.
type ZapAdapter struct {
	s *zap.SugaredLogger
}

// NewZapAdapter wraps z. A nil logger yields a no-op zap logger.
func NewZapAdapter(z *zap.Logger) *ZapAdapter {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapAdapter{s: z.Sugar()}
}

func (z *ZapAdapter) Debug(msg string, args ...any) { z.s.Debugw(msg, args...) }
func (z *ZapAdapter) Info(msg string, args ...any)  { z.s.Infow(msg, args...) }
func (z *ZapAdapter) Warn(msg string, args ...any)  { z.s.Warnw(msg, args...) }
func (z *ZapAdapter) Error(msg string, args ...any) { z.s.Errorw(msg, args...) }

// Sync flushes buffered entries.
func (z *ZapAdapter) Sync() error { return z.s.Sync() }

func newZap(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zapcore.InfoLevel
	}

	console := cfg.Format == "console" || cfg.Format == "text"

	var encoderConfig zapcore.EncoderConfig
	if console {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if cfg.Output != nil {
		var enc zapcore.Encoder
		if console {
			enc = zapcore.NewConsoleEncoder(encoderConfig)
		} else {
			enc = zapcore.NewJSONEncoder(encoderConfig)
		}
		core := zapcore.NewCore(enc, zapcore.AddSync(cfg.Output), level)
		return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      console,
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if console {
		zc.Encoding = "console"
	}
	return zc.Build(zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
}
