package observability

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName is the file the directory sink writes inside the logs directory
const LogFileName = "warden.log"

// ErrorRecord is a single error-level log entry persisted by an ErrorStore
type ErrorRecord struct {
	Level     string                 `bson:"level" json:"level"`
	Message   string                 `bson:"message" json:"message"`
	Fields    map[string]interface{} `bson:"fields,omitempty" json:"fields,omitempty"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
}

// ErrorStore persists error records, typically to a document collection
type ErrorStore interface {
	InsertError(ctx context.Context, record ErrorRecord) error
}

// NewDirectorySink returns a rotating file writer under dir. Rotated files are
// removed once they are older than retention, rounded up to whole days.
func NewDirectorySink(dir string, retention time.Duration) (io.WriteCloser, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &lumberjack.Logger{
		Filename:  filepath.Join(dir, LogFileName),
		MaxSize:   100,
		MaxAge:    retentionDays(retention),
		Compress:  true,
		LocalTime: true,
	}, nil
}

func retentionDays(retention time.Duration) int {
	if retention <= 0 {
		return 0
	}
	return int(math.Ceil(retention.Hours() / 24))
}

// ErrorStoreHook is a logrus hook that copies error-and-above entries into an
// ErrorStore. Fire only queues the record; a single goroutine performs the
// inserts, and records arriving while the queue is full are dropped.
type ErrorStoreHook struct {
	store   ErrorStore
	timeout time.Duration
	queue   chan ErrorRecord
	done    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// DefaultErrorQueueSize is the number of records an ErrorStoreHook buffers
const DefaultErrorQueueSize = 256

// NewErrorStoreHook creates a hook writing into store and starts its writer.
// Close must be called to flush and stop it.
func NewErrorStoreHook(store ErrorStore) *ErrorStoreHook {
	return newErrorStoreHook(store, DefaultErrorQueueSize, 5*time.Second)
}

func newErrorStoreHook(store ErrorStore, size int, timeout time.Duration) *ErrorStoreHook {
	ctx, cancel := context.WithCancel(context.Background())
	h := &ErrorStoreHook{
		store:   store,
		timeout: timeout,
		queue:   make(chan ErrorRecord, size),
		done:    make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.run()
	return h
}

// Levels implements logrus.Hook
func (h *ErrorStoreHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}
}

// Fire implements logrus.Hook. It never blocks on the store.
func (h *ErrorStoreHook) Fire(entry *logrus.Entry) error {
	fields := make(map[string]interface{}, len(entry.Data))
	for k, v := range entry.Data {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fields[k] = v
	}

	record := ErrorRecord{
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Fields:    fields,
		Timestamp: entry.Time,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return nil
	}

	select {
	case h.queue <- record:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// Dropped returns how many records were discarded because the queue was full
// or the hook was closed
func (h *ErrorStoreHook) Dropped() int64 {
	return h.dropped.Load()
}

func (h *ErrorStoreHook) run() {
	defer close(h.done)
	for record := range h.queue {
		ctx, cancel := context.WithTimeout(h.ctx, h.timeout)
		if err := h.store.InsertError(ctx, record); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to persist error log entry: %v\n", err)
		}
		cancel()
	}
}

// Close stops accepting records and waits up to the insert timeout for the
// queue to drain. Inserts still pending after that are abandoned.
func (h *ErrorStoreHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		<-h.done
		return nil
	}
	h.closed = true
	close(h.queue)
	h.mu.Unlock()

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case <-h.done:
	case <-timer.C:
		h.cancel()
		<-h.done
	}
	h.cancel()
	return nil
}

// SinkOptions selects the optional log sink attached by NewLoggerWithSink
type SinkOptions struct {
	Enabled   bool
	Type      string // "directory" or "mongodb"
	Directory string
	Retention time.Duration
}

// NewLoggerWithSink creates a logger writing to stdout plus the configured sink.
// The returned closer flushes and releases the sink and is never nil.
func NewLoggerWithSink(level LogLevel, opts SinkOptions, store ErrorStore) (*Logger, io.Closer, error) {
	if !opts.Enabled {
		return NewLogger(level, os.Stdout), nopCloser{}, nil
	}

	switch opts.Type {
	case "directory":
		sink, err := NewDirectorySink(opts.Directory, opts.Retention)
		if err != nil {
			return nil, nil, err
		}
		return NewLogger(level, io.MultiWriter(os.Stdout, sink)), sink, nil
	case "mongodb":
		logger := NewLogger(level, os.Stdout)
		if store == nil {
			return logger, nopCloser{}, nil
		}
		hook := NewErrorStoreHook(store)
		logger.AddHook(hook)
		return logger, hook, nil
	default:
		return NewLogger(level, os.Stdout), nopCloser{}, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
