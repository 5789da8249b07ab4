package logger

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"brandpulse/pkg/errors"
)

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Logger is a zap sugared logger that also forwards error-level entries to
// the configured errors.Tracker
type Logger struct {
	*zap.SugaredLogger
	tracker *trackerRef
}

// trackerRef is shared by a logger and all its children, so a tracker set
// after startup reaches loggers that were derived before it
type trackerRef struct {
	mu sync.RWMutex
	t  errors.Tracker
}

func (r *trackerRef) get() errors.Tracker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.t
}

// Init builds the global logger. env "production" logs JSON, anything else
// a colored console format. An unknown level falls back to info.
func Init(level string, env string) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == "production" {
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build(zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}

	globalMu.Lock()
	globalLogger = wrap(z)
	globalMu.Unlock()
	return nil
}

func wrap(z *zap.Logger) *Logger {
	return &Logger{SugaredLogger: z.Sugar(), tracker: &trackerRef{}}
}

// New wraps an existing zap logger (tests use zaptest/observer cores)
func New(z *zap.Logger) *Logger { return wrap(z) }

// NewNop discards everything
func NewNop() *Logger { return wrap(zap.NewNop()) }

// SetErrorTracker routes error-level entries of the global logger, and of
// every logger derived from it, to t
func SetErrorTracker(t errors.Tracker) {
	Get().SetTracker(t)
}

// SetTracker routes this logger's error-level entries to t
func (l *Logger) SetTracker(t errors.Tracker) {
	l.tracker.mu.Lock()
	l.tracker.t = t
	l.tracker.mu.Unlock()
}

// Get returns the global logger, creating a development one if Init was
// never called
func Get() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		z, _ := zap.NewDevelopment()
		globalLogger = wrap(z)
	}
	return globalLogger
}

// With adds structured fields to a child logger
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...), tracker: l.tracker}
}

// Component is shorthand for With("component", name)
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

func (l *Logger) Error(args ...interface{}) {
	l.SugaredLogger.Error(args...)
	l.capture(errors.Wrap(errors.ErrInternal, fmt.Sprint(args...)), nil)
}

func (l *Logger) Errorf(template string, args ...interface{}) {
	l.SugaredLogger.Errorf(template, args...)
	l.capture(fmt.Errorf(template, args...), nil)
}

// Errorw logs msg with key/value pairs. When an "error" pair holds an
// error it is captured, tagged with the string-valued pairs.
func (l *Logger) Errorw(msg string, keysAndValues ...interface{}) {
	l.SugaredLogger.Errorw(msg, keysAndValues...)

	var err error
	tags := map[string]string{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		switch v := keysAndValues[i+1].(type) {
		case error:
			if key == "error" {
				err = v
			}
		case string:
			tags[key] = v
		}
	}
	if err == nil {
		err = errors.Wrap(errors.ErrInternal, msg)
	} else {
		err = errors.Wrap(err, msg)
	}
	l.capture(err, tags)
}

func (l *Logger) capture(err error, tags map[string]string) {
	t := l.tracker.get()
	if t == nil {
		return
	}
	if tags == nil {
		tags = map[string]string{}
	}
	if _, ok := tags[errors.TagComponent]; !ok {
		tags[errors.TagComponent] = "logger"
	}
	_ = t.CaptureError(context.Background(), err, tags)
}

// Sync flushes buffered entries of the global logger
func Sync() error {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}
