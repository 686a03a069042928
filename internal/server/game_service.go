package server

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdem-engine/internal/game"
)

// ErrTableNotFound is returned for requests naming an unknown table.
var ErrTableNotFound = errors.New("table not found")

// Notifier delivers messages to connected clients.
type Notifier interface {
	SendToPlayer(playerID string, msg *Message) error
	TableViewers(tableID string) []string
}

// gameTable pairs an engine table with the timers that drive it. mu
// serializes every request against the table together with the timer
// rescheduling that follows it.
type gameTable struct {
	mu        sync.Mutex
	cfg       TableConfig
	timers    TableTimers
	table     *game.Table
	timer     *quartz.Timer
	scheduled string // key of the pending timer
	announced string // last hand whose result was sent
}

// GameService owns the tables and turns client requests into table calls.
type GameService struct {
	mu        sync.RWMutex
	tables    map[string]*gameTable
	notifier  Notifier
	clock     quartz.Clock
	logger    *log.Logger
	tableOpts []game.TableOption
}

// ServiceOption configures a GameService.
type ServiceOption func(*GameService)

// WithServiceClock sets the clock behind action, vote and next-hand timers.
func WithServiceClock(clock quartz.Clock) ServiceOption {
	return func(gs *GameService) { gs.clock = clock }
}

// WithTableOptions passes options to every table the service creates.
func WithTableOptions(opts ...game.TableOption) ServiceOption {
	return func(gs *GameService) { gs.tableOpts = append(gs.tableOpts, opts...) }
}

// WithNotifier sets where table messages are delivered.
func WithNotifier(n Notifier) ServiceOption {
	return func(gs *GameService) { gs.notifier = n }
}

// NewGameService creates a service with no tables.
func NewGameService(logger *log.Logger, opts ...ServiceOption) *GameService {
	gs := &GameService{
		tables: make(map[string]*gameTable),
		clock:  quartz.NewReal(),
		logger: logger.WithPrefix("game"),
	}
	for _, opt := range opts {
		opt(gs)
	}
	return gs
}

// SetNotifier sets the notifier after construction.
func (gs *GameService) SetNotifier(n Notifier) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.notifier = n
}

// AddTable creates a table from its configuration block. opts apply to this
// table only, after the service-wide options.
func (gs *GameService) AddTable(cfg TableConfig, opts ...game.TableOption) error {
	timers, err := cfg.Timers()
	if err != nil {
		return err
	}
	opts = append(append([]game.TableOption{game.WithLogger(gs.logger), game.WithClock(gs.clock)}, gs.tableOpts...), opts...)
	table, err := game.NewTable(cfg.Game(), opts...)
	if err != nil {
		return err
	}

	gs.mu.Lock()
	defer gs.mu.Unlock()
	if _, exists := gs.tables[cfg.Name]; exists {
		return fmt.Errorf("table %s already exists", cfg.Name)
	}
	gs.tables[cfg.Name] = &gameTable{cfg: cfg, timers: timers, table: table}
	gs.logger.Info("Table created", "table", cfg.Name, "seats", cfg.Seats,
		"blinds", fmt.Sprintf("%d/%d", cfg.SmallBlind, cfg.BigBlind), "run_it_twice", cfg.RunItTwice)
	return nil
}

// Table returns the engine table with the given id.
func (gs *GameService) Table(tableID string) (*game.Table, bool) {
	gt, err := gs.lookup(tableID)
	if err != nil {
		return nil, false
	}
	return gt.table, true
}

func (gs *GameService) lookup(tableID string) (*gameTable, error) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	gt, ok := gs.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	return gt, nil
}

// ListTables returns a summary of every table, sorted by id.
func (gs *GameService) ListTables() []TableInfo {
	gs.mu.RLock()
	tables := make([]*gameTable, 0, len(gs.tables))
	for _, gt := range gs.tables {
		tables = append(tables, gt)
	}
	gs.mu.RUnlock()

	infos := make([]TableInfo, 0, len(tables))
	for _, gt := range tables {
		seated := 0
		for _, s := range gt.table.Seats() {
			if s != nil {
				seated++
			}
		}
		status := "waiting"
		switch {
		case gt.table.Halted() != nil:
			status = "halted"
		case gt.table.HandInProgress():
			status = "active"
		}
		infos = append(infos, TableInfo{
			ID:          gt.cfg.Name,
			Name:        gt.cfg.Name,
			PlayerCount: seated,
			MaxPlayers:  gt.cfg.Seats,
			Stakes:      fmt.Sprintf("%d/%d", gt.cfg.SmallBlind, gt.cfg.BigBlind),
			Status:      status,
			HandCount:   gt.table.HandCount(),
		})
	}
	slices.SortFunc(infos, func(a, b TableInfo) int { return strings.Compare(a.ID, b.ID) })
	return infos
}

// JoinTable seats a player. seat < 0 takes the first free seat.
func (gs *GameService) JoinTable(tableID, playerID string, seat, buyIn int) (int, error) {
	gt, err := gs.lookup(tableID)
	if err != nil {
		return -1, err
	}
	gt.mu.Lock()
	defer gt.mu.Unlock()
	seat, err = gt.table.Sit(playerID, playerID, seat, buyIn)
	if err != nil {
		return -1, err
	}
	gs.afterChange(gt)
	return seat, nil
}

// Spectate lets a player watch a table without a seat.
func (gs *GameService) Spectate(tableID, playerID string) error {
	gt, err := gs.lookup(tableID)
	if err != nil {
		return err
	}
	gt.mu.Lock()
	defer gt.mu.Unlock()
	gt.table.Spectate(playerID)
	gs.afterChange(gt)
	return nil
}

// LeaveTable removes a player or spectator. A player in a running hand is
// folded first.
func (gs *GameService) LeaveTable(tableID, playerID string) error {
	gt, err := gs.lookup(tableID)
	if err != nil {
		return err
	}
	gt.mu.Lock()
	defer gt.mu.Unlock()
	if err := gt.table.Leave(playerID); err != nil {
		return err
	}
	gs.afterChange(gt)
	return nil
}

// SubmitAction applies a player's action given in wire vocabulary.
func (gs *GameService) SubmitAction(tableID, playerID, action string, amount int) error {
	gt, err := gs.lookup(tableID)
	if err != nil {
		return err
	}
	kind, err := game.ParseActionKind(action)
	if err != nil {
		return err
	}
	gt.mu.Lock()
	defer gt.mu.Unlock()
	if err := gt.table.SubmitAction(playerID, kind, amount); err != nil {
		return err
	}
	gs.afterChange(gt)
	return nil
}

// Vote records a run-it-twice answer.
func (gs *GameService) Vote(tableID, playerID string, agree bool) error {
	gt, err := gs.lookup(tableID)
	if err != nil {
		return err
	}
	gt.mu.Lock()
	defer gt.mu.Unlock()
	if err := gt.table.Vote(playerID, agree); err != nil {
		return err
	}
	gs.afterChange(gt)
	return nil
}

// Snapshot returns a table as seen by viewer.
func (gs *GameService) Snapshot(tableID, viewer string) (game.Snapshot, error) {
	gt, err := gs.lookup(tableID)
	if err != nil {
		return game.Snapshot{}, err
	}
	return gt.table.Snapshot(viewer), nil
}

// Close stops every timer and closes tables that are between hands.
func (gs *GameService) Close() error {
	gs.mu.Lock()
	tables := make([]*gameTable, 0, len(gs.tables))
	for _, gt := range gs.tables {
		tables = append(tables, gt)
	}
	gs.mu.Unlock()

	var errs []error
	for _, gt := range tables {
		gt.mu.Lock()
		gs.cancelTimer(gt)
		gt.scheduled = "closed"
		if err := gt.table.Close(); err != nil {
			errs = append(errs, fmt.Errorf("table %s: %w", gt.cfg.Name, err))
		}
		gt.mu.Unlock()
	}
	return errors.Join(errs...)
}

// afterChange publishes the table to its viewers and arms the timer for
// whatever the table waits on next. Callers hold gt.mu.
func (gs *GameService) afterChange(gt *gameTable) {
	tableID := gt.cfg.Name
	if gt.scheduled == "closed" {
		return
	}

	notifier := gs.currentNotifier()
	if notifier != nil {
		gs.announceResult(gt, notifier)
		for _, viewer := range notifier.TableViewers(tableID) {
			gs.send(notifier, viewer, MessageTypeTableState, TableStateData{
				TableID: tableID,
				State:   gt.table.Snapshot(viewer),
			})
		}
	}

	ts, waiting := gt.table.Waiting()
	switch {
	case waiting && ts.PlayerID != "":
		key := fmt.Sprintf("act:%s:%d", ts.HandID, ts.Turn)
		if key == gt.scheduled {
			return
		}
		player, turn := ts.PlayerID, ts.Turn
		gs.schedule(gt, key, gt.timers.Action, func() {
			kind, err := gt.table.ForceAction(player, turn)
			if err != nil {
				gs.logger.Debug("Stale action timer", "table", tableID, "player", player, "turn", turn, "error", err)
				return
			}
			gs.logger.Info("Player timed out", "table", tableID, "player", player, "action", kind)
		})
		if notifier != nil {
			opts, err := gt.table.ValidActions(player)
			if err != nil {
				gs.logger.Warn("No legal actions for actor", "table", tableID, "player", player, "error", err)
				return
			}
			gs.send(notifier, player, MessageTypeActionRequired,
				ActionRequiredFromOptions(tableID, ts, opts, gt.timers.Action))
		}

	case waiting && len(ts.Voters) > 0:
		key := fmt.Sprintf("vote:%s:%d", ts.HandID, ts.Turn)
		if key == gt.scheduled {
			return
		}
		turn := ts.Turn
		gs.schedule(gt, key, gt.timers.Vote, func() {
			if err := gt.table.CloseVote(turn); err != nil {
				gs.logger.Debug("Stale vote timer", "table", tableID, "turn", turn, "error", err)
				return
			}
			gs.logger.Info("Vote closed by timeout", "table", tableID, "turn", turn)
		})
		if notifier != nil {
			for _, voter := range ts.Voters {
				gs.send(notifier, voter, MessageTypeVoteRequired, VoteRequiredData{
					TableID:        tableID,
					HandID:         ts.HandID,
					Turn:           ts.Turn,
					TimeoutSeconds: int(gt.timers.Vote / time.Second),
				})
			}
		}

	case waiting:
		gs.cancelTimer(gt)

	default:
		if gt.table.Halted() != nil || fundedSeats(gt.table) < 2 {
			gs.cancelTimer(gt)
			return
		}
		key := fmt.Sprintf("next:%d", gt.table.HandCount())
		if key == gt.scheduled {
			return
		}
		gs.schedule(gt, key, gt.timers.NextHand, func() {
			if err := gt.table.StartHand(); err != nil {
				gs.logger.Warn("Failed to start hand", "table", tableID, "error", err)
			}
		})
	}
}

// schedule replaces the table's timer. The callback runs under gt.mu and
// only if the timer is still the scheduled one.
func (gs *GameService) schedule(gt *gameTable, key string, d time.Duration, fire func()) {
	gs.cancelTimer(gt)
	gt.scheduled = key
	gt.timer = gs.clock.AfterFunc(d, func() {
		gt.mu.Lock()
		defer gt.mu.Unlock()
		if gt.scheduled != key {
			return
		}
		gt.scheduled = ""
		gt.timer = nil
		fire()
		gs.afterChange(gt)
	}, "table", gt.cfg.Name)
}

func (gs *GameService) cancelTimer(gt *gameTable) {
	if gt.timer != nil {
		gt.timer.Stop()
		gt.timer = nil
	}
	gt.scheduled = ""
}

// announceResult sends the winners of a hand that just finished to every
// viewer, once per hand.
func (gs *GameService) announceResult(gt *gameTable, notifier Notifier) {
	snap := gt.table.Snapshot("")
	if snap.HandID == "" || snap.Phase != game.HandOver || snap.HandID == gt.announced {
		return
	}
	gt.announced = snap.HandID
	result := HandResultData{
		TableID: gt.cfg.Name,
		HandID:  snap.HandID,
		Board:   snap.Board,
		Runs:    snap.Runs,
		Winners: snap.Winners,
	}
	for _, viewer := range notifier.TableViewers(gt.cfg.Name) {
		gs.send(notifier, viewer, MessageTypeHandResult, result)
	}
}

func (gs *GameService) currentNotifier() Notifier {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.notifier
}

func (gs *GameService) send(n Notifier, playerID string, typ MessageType, data any) {
	msg, err := NewMessage(typ, data)
	if err != nil {
		gs.logger.Error("Failed to create message", "type", typ, "error", err)
		return
	}
	if err := n.SendToPlayer(playerID, msg); err != nil {
		gs.logger.Debug("Failed to deliver message", "type", typ, "player", playerID, "error", err)
	}
}

func fundedSeats(t *game.Table) int {
	n := 0
	for _, s := range t.Seats() {
		if s != nil && !s.Leaving && s.Stack > 0 {
			n++
		}
	}
	return n
}

// errorCode maps a service error to its wire code.
func errorCode(err error) string {
	if errors.Is(err, ErrTableNotFound) {
		return "table_not_found"
	}
	return game.ErrorCode(err)
}
