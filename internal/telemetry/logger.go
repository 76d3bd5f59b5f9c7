package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Logger is a leveled slog logger. Loggers derived with With or WithTrace
// share their parent's outputs: a file added later reaches them too, and
// closing any of them closes the log files.
type Logger struct {
	inner *slog.Logger
	out   *outputs
}

// outputs is the writer set shared by a logger and its children.
type outputs struct {
	mu      sync.RWMutex
	level   slog.Level
	handler slog.Handler
	format  string
	writers []io.Writer
	files   []*os.File
}

func (o *outputs) rebuild() {
	opts := &slog.HandlerOptions{Level: o.level}
	w := io.MultiWriter(o.writers...)
	if o.format == "json" {
		o.handler = slog.NewJSONHandler(w, opts)
	} else {
		o.handler = slog.NewTextHandler(w, opts)
	}
}

func (o *outputs) current() slog.Handler {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.handler
}

// sharedHandler resolves the outputs' handler per record and replays the
// attrs and groups it was derived with.
type sharedHandler struct {
	out    *outputs
	derive []func(slog.Handler) slog.Handler
}

func (h *sharedHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.out.level
}

func (h *sharedHandler) Handle(ctx context.Context, r slog.Record) error {
	inner := h.out.current()
	for _, d := range h.derive {
		inner = d(inner)
	}
	return inner.Handle(ctx, r)
}

func (h *sharedHandler) with(d func(slog.Handler) slog.Handler) *sharedHandler {
	derive := make([]func(slog.Handler) slog.Handler, 0, len(h.derive)+1)
	derive = append(derive, h.derive...)
	return &sharedHandler{out: h.out, derive: append(derive, d)}
}

func (h *sharedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithAttrs(attrs) })
}

func (h *sharedHandler) WithGroup(name string) slog.Handler {
	return h.with(func(inner slog.Handler) slog.Handler { return inner.WithGroup(name) })
}

// NewLogger creates a text logger on stderr.
func NewLogger(verbose bool) *Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return NewLoggerWithWriter(os.Stderr, level, "text")
}

// NewLoggerWithWriter creates a logger writing to w in the given format
// ("text" or "json").
func NewLoggerWithWriter(w io.Writer, level slog.Level, format string) *Logger {
	o := &outputs{level: level, format: format, writers: []io.Writer{w}}
	o.rebuild()
	return &Logger{inner: slog.New(&sharedHandler{out: o}), out: o}
}

// ParseLevel converts a config level name into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", name)
	}
}

// WithFile tees records into path, creating parent directories.
func (l *Logger) WithFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.writers = append(l.out.writers, f)
	l.out.files = append(l.out.files, f)
	l.out.rebuild()
	return nil
}

// With returns a child logger that adds keyvals to every record.
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{inner: l.inner.With(keyvals...), out: l.out}
}

// Close closes the files added with WithFile and drops them from the
// outputs.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if len(l.out.files) == 0 {
		return nil
	}

	var firstErr error
	for _, f := range l.out.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.out.writers = l.out.writers[:len(l.out.writers)-len(l.out.files)]
	l.out.files = nil
	l.out.rebuild()
	return firstErr
}

// Slog returns the underlying *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.inner
}

func (l *Logger) Debug(msg string, keyvals ...any) { l.inner.Debug(msg, keyvals...) }
func (l *Logger) Info(msg string, keyvals ...any)  { l.inner.Info(msg, keyvals...) }
func (l *Logger) Warn(msg string, keyvals ...any)  { l.inner.Warn(msg, keyvals...) }
func (l *Logger) Error(msg string, keyvals ...any) { l.inner.Error(msg, keyvals...) }
