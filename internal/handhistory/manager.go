// Package handhistory records finished hands as PHH session files, one
// directory per table.
package handhistory

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdem-engine/internal/fileutil"
	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/internal/phh"
)

const (
	sessionFilename = "session.phhs"
	latestFilename  = "latest.phh"

	maxConsecutiveFailures = 3
)

// Config configures a Manager.
type Config struct {
	Dir              string
	FlushInterval    time.Duration
	FlushHands       int
	IncludeHoleCards bool
	Clock            quartz.Clock
}

// Manager buffers hands per table and appends them to disk on a ticker or
// once a table has FlushHands pending. It implements game.HistorySink.
type Manager struct {
	cfg    Config
	logger *log.Logger

	mu     sync.Mutex
	tables map[string]*tableLog

	flushMu  sync.Mutex
	flushReq chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

type tableLog struct {
	dir      string
	buffer   []*phh.HandHistory
	section  int
	opened   bool
	failures int
	disabled bool
}

var _ game.HistorySink = (*Manager)(nil)

// NewManager creates a manager and starts its flush loop.
func NewManager(cfg Config, logger *log.Logger) (*Manager, error) {
	if cfg.Dir == "" {
		cfg.Dir = "hands"
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.FlushHands <= 0 {
		cfg.FlushHands = 100
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create hand history dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		logger:   logger.WithPrefix("hand-history"),
		tables:   make(map[string]*tableLog),
		flushReq: make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	ticker := cfg.Clock.NewTicker(cfg.FlushInterval, "handhistory", "flush")
	go m.run(ctx, ticker)
	return m, nil
}

// RecordHand buffers a finished hand.
func (m *Manager) RecordHand(rec game.HandRecord) error {
	if rec.TableID == "" || strings.ContainsAny(rec.TableID, `/\`) {
		return fmt.Errorf("hand %s: invalid table id %q", rec.HandID, rec.TableID)
	}
	hand := phh.FromRecord(rec, m.cfg.IncludeHoleCards)

	m.mu.Lock()
	tl := m.tables[rec.TableID]
	if tl == nil {
		tl = &tableLog{dir: filepath.Join(m.cfg.Dir, rec.TableID)}
		m.tables[rec.TableID] = tl
	}
	if tl.disabled {
		m.mu.Unlock()
		return fmt.Errorf("hand history for table %s is disabled", rec.TableID)
	}
	tl.buffer = append(tl.buffer, hand)
	full := len(tl.buffer) >= m.cfg.FlushHands
	m.mu.Unlock()

	if full {
		select {
		case m.flushReq <- struct{}{}:
		default:
		}
	}
	return nil
}

// Pending returns the number of buffered hands for a table.
func (m *Manager) Pending(tableID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tl := m.tables[tableID]; tl != nil {
		return len(tl.buffer)
	}
	return 0
}

// SessionPath returns the session file for a table.
func (m *Manager) SessionPath(tableID string) string {
	return filepath.Join(m.cfg.Dir, tableID, sessionFilename)
}

// Flush writes every buffered hand.
func (m *Manager) Flush() error {
	m.flushMu.Lock()
	defer m.flushMu.Unlock()

	m.mu.Lock()
	ids := make([]string, 0, len(m.tables))
	for id := range m.tables {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := m.flushTable(id); err != nil {
			errs = append(errs, fmt.Errorf("table %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) flushTable(id string) error {
	m.mu.Lock()
	tl := m.tables[id]
	if tl.disabled || len(tl.buffer) == 0 {
		m.mu.Unlock()
		return nil
	}
	hands := append([]*phh.HandHistory(nil), tl.buffer...)
	m.mu.Unlock()

	res, err := m.appendHands(tl, hands)

	m.mu.Lock()
	defer m.mu.Unlock()
	tl.section = res.section
	tl.buffer = tl.buffer[res.consumed:]
	if err != nil {
		tl.failures++
		if tl.failures >= maxConsecutiveFailures {
			m.logger.Error("hand history disabled after repeated failures", "table", id, "dropped", len(tl.buffer))
			tl.buffer = nil
			tl.disabled = true
		}
		return err
	}
	tl.failures = 0
	m.logger.Debug("flushed hands", "table", id, "hands", res.consumed, "section", res.section)
	if res.latestErr != nil {
		return fmt.Errorf("update %s: %w", latestFilename, res.latestErr)
	}
	return nil
}

type appendResult struct {
	consumed  int // hands taken off the front of the buffer
	section   int // last section number in the session file
	latestErr error
}

// appendHands appends hands to the table's session file in one write and
// replaces latest.phh with the last one. A hand that cannot be encoded is
// dropped and reported; a failed write is truncated away. Callers hold
// flushMu.
func (m *Manager) appendHands(tl *tableLog, hands []*phh.HandHistory) (appendResult, error) {
	res := appendResult{section: tl.section}
	if err := os.MkdirAll(tl.dir, 0o755); err != nil {
		return res, err
	}
	path := filepath.Join(tl.dir, sessionFilename)
	if !tl.opened {
		last, err := lastSection(path)
		if err != nil {
			return res, err
		}
		tl.section = last
		tl.opened = true
		res.section = last
	}

	var (
		buf      bytes.Buffer
		latest   *phh.HandHistory
		errs     []error
		section  = res.section
		consumed int
	)
	for _, hand := range hands {
		consumed++
		var one bytes.Buffer
		if err := phh.EncodeSection(&one, section+1, hand); err != nil {
			m.logger.Error("dropping hand that cannot be encoded", "hand", hand.HandID, "err", err)
			errs = append(errs, fmt.Errorf("encode hand %s: %w", hand.HandID, err))
			continue
		}
		section++
		buf.Write(one.Bytes())
		latest = hand
	}

	if buf.Len() > 0 {
		if err := appendFile(path, buf.Bytes()); err != nil {
			return res, err
		}
	}
	res.consumed = consumed
	res.section = section
	if latest != nil {
		res.latestErr = fileutil.WriteAtomic(filepath.Join(tl.dir, latestFilename), 0o644, func(w io.Writer) error {
			return phh.Encode(w, latest)
		})
	}
	return res, errors.Join(errs...)
}

// appendFile appends data, cutting the file back to its old length if the
// write fails part way.
func appendFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Truncate(info.Size())
		_ = file.Close()
		return err
	}
	return file.Close()
}

// lastSection returns the highest [n] header in an existing session file.
func lastSection(path string) (int, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer file.Close()

	last := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) >= 3 && line[0] == '[' && line[len(line)-1] == ']' {
			if n, err := strconv.Atoi(line[1 : len(line)-1]); err == nil && n > last {
				last = n
			}
		}
	}
	return last, scanner.Err()
}

func (m *Manager) run(ctx context.Context, ticker *quartz.Ticker) {
	defer close(m.done)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-m.flushReq:
		case <-ctx.Done():
			return
		}
		if err := m.Flush(); err != nil {
			m.logger.Error("hand history flush failed", "err", err)
		}
	}
}

// Close stops the flush loop and writes what is left.
func (m *Manager) Close() error {
	m.cancel()
	<-m.done
	return m.Flush()
}
