package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/valinor-ai/slackgate/internal/platform/database"
)

// LoggerConfig configures the async audit logger.
type LoggerConfig struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	FlushTimeout  time.Duration
}

func (c LoggerConfig) withDefaults() LoggerConfig {
	if c.BufferSize <= 0 {
		c.BufferSize = 4096
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 500 * time.Millisecond
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 5 * time.Second
	}
	return c
}

// AsyncLogger persists verification decisions off the request path. A
// single worker drains a buffered channel in batches.
type AsyncLogger struct {
	events  chan Event
	store   *Store
	db      database.Querier
	cfg     LoggerConfig
	done    chan struct{}
	stopped chan struct{}
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsyncLogger creates and starts an async audit logger.
func NewAsyncLogger(db database.Querier, store *Store, cfg LoggerConfig) *AsyncLogger {
	cfg = cfg.withDefaults()
	l := &AsyncLogger{
		events:  make(chan Event, cfg.BufferSize),
		store:   store,
		db:      db,
		cfg:     cfg,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go l.run()
	return l
}

// Log enqueues an event. It never blocks; when the buffer is full the event
// is dropped and counted.
func (l *AsyncLogger) Log(ctx context.Context, event Event) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	// The read lock keeps Close from finishing its drain between the closed
	// check and the send.
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.events <- event:
	default:
		l.dropped.Add(1)
		slog.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"request_id", event.RequestID,
		)
	}
}

// Dropped reports how many events were discarded.
func (l *AsyncLogger) Dropped() int64 {
	return l.dropped.Load()
}

// Close stops the worker after flushing buffered events. Safe to call more
// than once.
func (l *AsyncLogger) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	l.mu.Unlock()
	<-l.stopped
	return nil
}

func (l *AsyncLogger) run() {
	defer close(l.stopped)

	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, l.cfg.BatchSize)
	for {
		select {
		case <-l.done:
			l.flush(append(batch, l.drain()...))
			return
		case e := <-l.events:
			batch = append(batch, e)
			if len(batch) >= l.cfg.BatchSize {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (l *AsyncLogger) flush(events []Event) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.FlushTimeout)
	defer cancel()

	if err := l.store.InsertBatch(ctx, l.db, events); err != nil {
		slog.Error("verification audit flush failed", "error", err, "count", len(events))
	}
}

func (l *AsyncLogger) drain() []Event {
	var events []Event
	for {
		select {
		case e := <-l.events:
			events = append(events, e)
		default:
			return events
		}
	}
}
