package logger

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Ctx is the set of fields attached to a log entry.
type Ctx map[string]any

const requestIDField = "request_id"

// Logger is the logging interface used across the gateway.
type Logger interface {
	Error(msg string, ctx ...Ctx)
	Warn(msg string, ctx ...Ctx)
	Info(msg string, ctx ...Ctx)
	Debug(msg string, ctx ...Ctx)
	AddContext(ctx Ctx) Logger
	WithRequestID(id string) Logger
}

// New returns a JSON logger writing to out at the given level.
func New(level string, out io.Writer) (Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{})

	return &entryLogger{entry: logrus.NewEntry(l)}, nil
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return &entryLogger{entry: logrus.NewEntry(l)}
}

// entryLogger carries its fields on a logrus entry so sub-loggers share the
// underlying output and level.
type entryLogger struct {
	entry *logrus.Entry
}

func (l *entryLogger) log(level logrus.Level, msg string, ctx []Ctx) {
	if !l.entry.Logger.IsLevelEnabled(level) {
		return
	}

	e := l.entry
	for _, c := range ctx {
		e = e.WithFields(logrus.Fields(c))
	}

	e.Log(level, msg)
}

func (l *entryLogger) Error(msg string, ctx ...Ctx) { l.log(logrus.ErrorLevel, msg, ctx) }
func (l *entryLogger) Warn(msg string, ctx ...Ctx)  { l.log(logrus.WarnLevel, msg, ctx) }
func (l *entryLogger) Info(msg string, ctx ...Ctx)  { l.log(logrus.InfoLevel, msg, ctx) }
func (l *entryLogger) Debug(msg string, ctx ...Ctx) { l.log(logrus.DebugLevel, msg, ctx) }

// AddContext returns a sub-logger with ctx attached to every entry.
func (l *entryLogger) AddContext(ctx Ctx) Logger {
	return &entryLogger{entry: l.entry.WithFields(logrus.Fields(ctx))}
}

// WithRequestID returns a sub-logger tagging every entry with id.
func (l *entryLogger) WithRequestID(id string) Logger {
	return &entryLogger{entry: l.entry.WithField(requestIDField, id)}
}

type contextKey struct{}

// WithContext returns a copy of ctx carrying l.
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}

	return fallback
}
