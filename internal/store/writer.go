package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/holdem-engine/internal/game"
)

// ErrQueueFull is returned when a Writer cannot take another hand.
var ErrQueueFull = errors.New("store: write queue full")

// ErrWriterClosed is returned for hands recorded after Close.
var ErrWriterClosed = errors.New("store: writer closed")

// WriterConfig configures a Writer.
type WriterConfig struct {
	Buffer  int           // Hands queued before RecordHand refuses more
	Timeout time.Duration // Deadline for each SaveHand
}

// Writer saves hands to a HandStore from its own goroutine so a slow
// database never holds up a table. It implements game.HistorySink.
type Writer struct {
	store   HandStore
	timeout time.Duration
	logger  *log.Logger
	queue   chan game.HandRecord
	done    chan struct{}

	mu     sync.RWMutex // guards closed against sends on a closed queue
	closed bool

	saved, failed, dropped atomic.Int64
}

var _ game.HistorySink = (*Writer)(nil)

// NewWriter starts a writer for hs.
func NewWriter(hs HandStore, cfg WriterConfig, logger *log.Logger) *Writer {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	w := &Writer{
		store:   hs,
		timeout: cfg.Timeout,
		logger:  logger.WithPrefix("store"),
		queue:   make(chan game.HandRecord, cfg.Buffer),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// RecordHand queues a hand without waiting for the database.
func (w *Writer) RecordHand(rec game.HandRecord) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrWriterClosed
	}
	select {
	case w.queue <- rec:
		return nil
	default:
	}
	w.dropped.Add(1)
	return fmt.Errorf("%w: hand %s dropped", ErrQueueFull, rec.HandID)
}

func (w *Writer) run() {
	defer close(w.done)
	for rec := range w.queue {
		err := w.save(rec)
		if err != nil {
			w.failed.Add(1)
		} else {
			w.saved.Add(1)
		}
		switch {
		case errors.Is(err, ErrDuplicate):
			w.logger.Debug("hand already stored", "hand", rec.HandID)
		case err != nil:
			w.logger.Error("failed to store hand", "hand", rec.HandID, "table", rec.TableID, "err", err)
		}
	}
}

func (w *Writer) save(rec game.HandRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	return w.store.SaveHand(ctx, rec)
}

// Stats returns how many hands were saved, failed to save, or were dropped
// because the queue was full.
func (w *Writer) Stats() (saved, failed, dropped int64) {
	return w.saved.Load(), w.failed.Load(), w.dropped.Load()
}

// Close stops accepting hands and waits for the queue to drain. It does not
// close the underlying store.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	<-w.done
	return nil
}
