package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/holdem-engine/internal/handid"
	"github.com/lox/holdem-engine/poker"
)

// TableConfig describes a cash-game table.
type TableConfig struct {
	ID         string
	Name       string
	Seats      int
	SmallBlind int
	BigBlind   int
	MinBuyIn   int
	MaxBuyIn   int
	RunItTwice bool
}

// SeatLimit is the most players one deck can deal a full hand to: two hole
// cards each plus three burns and five board cards, dealt twice when the
// board may run twice.
func SeatLimit(runItTwice bool) int {
	board := 3 + 5
	if runItTwice {
		board *= 2
	}
	return min(MaxSeats, (poker.DeckSize-board)/2)
}

// Validate checks the configuration.
func (c TableConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("table id is required")
	}
	if limit := SeatLimit(c.RunItTwice); c.Seats < 2 || c.Seats > limit {
		return fmt.Errorf("table %s: seats must be between 2 and %d, got %d", c.ID, limit, c.Seats)
	}
	if c.SmallBlind <= 0 || c.BigBlind < c.SmallBlind {
		return fmt.Errorf("table %s: invalid blinds %d/%d", c.ID, c.SmallBlind, c.BigBlind)
	}
	if c.MinBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("table %s: invalid buy-in range %d-%d", c.ID, c.MinBuyIn, c.MaxBuyIn)
	}
	return nil
}

// Seat is a table seat's occupant between hands.
type Seat struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Stack    int    `json:"stack"`
	Leaving  bool   `json:"leaving,omitempty"`
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithLogger sets the table logger.
func WithLogger(logger *log.Logger) TableOption {
	return func(t *Table) { t.logger = logger }
}

// WithClock sets the clock used for hand timestamps.
func WithClock(clock quartz.Clock) TableOption {
	return func(t *Table) { t.clock = clock }
}

// WithRNG sets the shuffle source.
func WithRNG(rng *rand.Rand) TableOption {
	return func(t *Table) { t.rng = rng }
}

// WithStatsSink registers the stats collaborator.
func WithStatsSink(sink StatsSink) TableOption {
	return func(t *Table) { t.stats = sink }
}

// WithHistorySink registers the hand history collaborator.
func WithHistorySink(sink HistorySink) TableOption {
	return func(t *Table) { t.history = sink }
}

// WithIDGenerator overrides how hand ids are minted.
func WithIDGenerator(next func() string) TableOption {
	return func(t *Table) { t.newID = next }
}

// WithDeckSource makes every hand deal from the returned deck.
func WithDeckSource(next func() *poker.Deck) TableOption {
	return func(t *Table) { t.nextDeck = next }
}

// Table owns the seats and the current hand. All entry points are
// serialized by one mutex, so a table has exactly one writer.
type Table struct {
	mu sync.Mutex

	cfg        TableConfig
	seats      []*Seat
	spectators []string
	dealer     int
	hand       *HandState
	handCount  int
	startedAt  time.Time
	halted     error
	closed     bool

	rng      *rand.Rand
	clock    quartz.Clock
	logger   *log.Logger
	stats    StatsSink
	history  HistorySink
	newID    func() string
	nextDeck func() *poker.Deck
}

// NewTable creates an empty table.
func NewTable(cfg TableConfig, opts ...TableOption) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		cfg:    cfg,
		seats:  make([]*Seat, cfg.Seats),
		dealer: -1,
		clock:  quartz.NewReal(),
		logger: log.Default(),
		newID:  handid.New,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	t.logger = t.logger.With("table", cfg.ID)
	return t, nil
}

// ID returns the table id.
func (t *Table) ID() string {
	return t.cfg.ID
}

// Config returns the table configuration.
func (t *Table) Config() TableConfig {
	return t.cfg
}

// Sit seats a player with a buy-in. seat < 0 picks the first free seat. A
// player who sits while a hand runs is dealt in from the next hand.
func (t *Table) Sit(playerID, name string, seat, buyIn int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return -1, reject(ErrTableHalted, "table %s is closed", t.cfg.ID)
	}
	if t.seatOf(playerID) >= 0 {
		return -1, reject(ErrAlreadySeated, "player %s is already seated", playerID)
	}
	if buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn {
		return -1, reject(ErrAmountOutOfRange, "buy-in must be between %d and %d", t.cfg.MinBuyIn, t.cfg.MaxBuyIn)
	}
	if seat < 0 {
		seat = slices.Index(t.seats, nil)
		if seat < 0 {
			return -1, reject(ErrTableFull, "table %s is full", t.cfg.ID)
		}
	}
	if seat >= len(t.seats) {
		return -1, reject(ErrAmountOutOfRange, "seat %d does not exist", seat)
	}
	if t.seats[seat] != nil {
		return -1, reject(ErrSeatTaken, "seat %d is taken", seat)
	}

	t.seats[seat] = &Seat{PlayerID: playerID, Name: name, Stack: buyIn}
	t.spectators = slices.DeleteFunc(t.spectators, func(id string) bool { return id == playerID })
	t.logger.Info("player seated", "player", playerID, "seat", seat, "buy_in", buyIn)
	return seat, nil
}

// Leave removes a player. A player still in a hand is folded and leaves
// when the hand ends.
func (t *Table) Leave(playerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if i := slices.Index(t.spectators, playerID); i >= 0 {
		t.spectators = slices.Delete(t.spectators, i, i+1)
		return nil
	}
	seat := t.seatOf(playerID)
	if seat < 0 {
		return reject(ErrUnknownPlayer, "player %s is not at the table", playerID)
	}

	if t.handRunning() {
		if _, p := t.hand.Player(playerID); p != nil {
			t.seats[seat].Leaving = true
			if err := t.mutate(func(h *HandState) error { return h.ForceFold(playerID) }); err != nil {
				return err
			}
			if t.seats[seat] != nil && t.seats[seat].Leaving {
				t.logger.Info("player leaving after hand", "player", playerID, "seat", seat)
			}
			return nil
		}
	}

	t.logger.Info("player left", "player", playerID, "seat", seat, "stack", t.seats[seat].Stack)
	t.seats[seat] = nil
	return nil
}

// Spectate adds a viewer who is not seated.
func (t *Table) Spectate(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seatOf(playerID) < 0 && !slices.Contains(t.spectators, playerID) {
		t.spectators = append(t.spectators, playerID)
	}
}

// Seats returns a copy of the seat occupants, nil for empty seats.
func (t *Table) Seats() []*Seat {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Seat, len(t.seats))
	for i, s := range t.seats {
		if s != nil {
			c := *s
			out[i] = &c
		}
	}
	return out
}

// StartHand moves the button and deals the next hand.
func (t *Table) StartHand() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return reject(ErrTableHalted, "table %s is closed", t.cfg.ID)
	}
	if t.halted != nil {
		return reject(ErrTableHalted, "table %s is halted: %v", t.cfg.ID, t.halted)
	}
	if t.handRunning() {
		return reject(ErrHandInProgress, "hand %s is still running", t.hand.ID)
	}

	players := make([]*Player, len(t.seats))
	funded := 0
	for i, s := range t.seats {
		if s == nil || s.Leaving || s.Stack <= 0 {
			continue
		}
		players[i] = NewPlayer(s.PlayerID, s.Name, s.Stack)
		funded++
	}
	if funded < 2 {
		return reject(ErrNotEnoughPlayers, "need two funded players, have %d", funded)
	}

	dealer := t.nextDealer(players)
	opts := []HandOption{
		WithHandID(t.newID()),
		WithHandNumber(t.handCount + 1),
		WithRunItTwice(t.cfg.RunItTwice),
	}
	if t.nextDeck != nil {
		opts = append(opts, WithDeck(t.nextDeck()))
	}

	h, err := NewHand(t.rng, players, dealer, t.cfg.SmallBlind, t.cfg.BigBlind, opts...)
	if err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			return t.halt(err)
		}
		return err
	}
	if err := h.CheckInvariants(); err != nil {
		return t.halt(err)
	}

	t.dealer = dealer
	t.handCount++
	t.hand = h
	t.startedAt = t.clock.Now()
	t.logger.Info("hand started", "hand", h.ID, "number", h.Number, "dealer", dealer, "players", funded)

	t.dispatch(h.drainEvents())
	if h.IsComplete() {
		t.finishHand()
	}
	return nil
}

// nextDealer moves the button clockwise to the next funded seat.
func (t *Table) nextDealer(players []*Player) int {
	n := len(players)
	for i := 1; i <= n; i++ {
		seat := (t.dealer + i + n) % n
		if players[seat] != nil {
			return seat
		}
	}
	return -1
}

// SubmitAction applies a player's action to the current hand. Rejected
// actions leave the hand unchanged.
func (t *Table) SubmitAction(playerID string, kind ActionKind, amount int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mutate(func(h *HandState) error {
		return h.act(playerID, kind, amount, false)
	})
}

// ForceAction checks if possible and folds otherwise, on behalf of a player
// whose clock ran out. turn must match the turn the timer was started for;
// a stale timer is rejected without effect.
func (t *Table) ForceAction(playerID string, turn int) (ActionKind, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.handRunning() {
		return Fold, reject(ErrNoHandInProgress, "no hand in progress")
	}
	p := t.hand.ActivePlayer()
	if p == nil || p.ID != playerID || t.hand.Turn != turn {
		return Fold, reject(ErrNotYourTurn, "turn %d for %s has already passed", turn, playerID)
	}
	kind := Fold
	if p.Bet == t.hand.HighestBet {
		kind = Check
	}
	err := t.mutate(func(h *HandState) error {
		return h.act(playerID, kind, 0, true)
	})
	if err == nil {
		t.logger.Info("forced action", "player", playerID, "action", kind)
	}
	return kind, err
}

// Vote records a run-it-twice answer.
func (t *Table) Vote(playerID string, agree bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mutate(func(h *HandState) error {
		return h.CastVote(playerID, agree)
	})
}

// CloseVote ends a pending vote, counting missing ballots as "no". turn must
// match the vote's turn.
func (t *Table) CloseVote(turn int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.handRunning() || t.hand.Vote == nil || t.hand.Turn != turn {
		return reject(ErrIllegalAction, "no vote open for turn %d", turn)
	}
	return t.mutate(func(h *HandState) error {
		return h.CloseVote()
	})
}

// TurnState describes who the table is waiting on.
type TurnState struct {
	HandID   string
	Turn     int
	PlayerID string // Set when a player is to act
	Voters   []string
}

// Waiting reports what the table is waiting for. ok is false between hands.
func (t *Table) Waiting() (TurnState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.handRunning() {
		return TurnState{}, false
	}
	ts := TurnState{HandID: t.hand.ID, Turn: t.hand.Turn}
	if p := t.hand.ActivePlayer(); p != nil {
		ts.PlayerID = p.ID
	}
	if t.hand.Vote != nil {
		for _, seat := range t.hand.Vote.Pending().Seats() {
			ts.Voters = append(ts.Voters, t.hand.Players[seat].ID)
		}
	}
	return ts, true
}

// ValidActions returns the legal actions for playerID when it is their turn.
func (t *Table) ValidActions(playerID string) (ActionOptions, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.handRunning() {
		return ActionOptions{}, reject(ErrNoHandInProgress, "no hand in progress")
	}
	opts, ok := t.hand.ValidActions()
	if !ok || opts.PlayerID != playerID {
		return ActionOptions{}, reject(ErrNotYourTurn, "not your turn")
	}
	return opts, nil
}

// HandInProgress reports whether a hand is running.
func (t *Table) HandInProgress() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handRunning()
}

// HandCount returns the number of hands dealt.
func (t *Table) HandCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handCount
}

// Halted returns the invariant violation that stopped the table, if any.
func (t *Table) Halted() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.halted
}

// Snapshot returns the table as seen by viewerID.
func (t *Table) Snapshot(viewerID string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s Snapshot
	inHand := make(map[int]bool)
	if t.hand != nil {
		s = t.hand.Snapshot(viewerID)
		for _, v := range s.Seats {
			inHand[v.Seat] = true
		}
	} else {
		s = Snapshot{Phase: Waiting, Dealer: t.dealer, CurrentActor: -1, Board: []poker.Card{}, Pots: []Pot{}}
	}
	s.TableID = t.cfg.ID
	s.SmallBlind = t.cfg.SmallBlind
	s.BigBlind = t.cfg.BigBlind
	for i, seat := range t.seats {
		if seat == nil || inHand[i] {
			continue
		}
		s.Seats = append(s.Seats, SeatView{Seat: i, PlayerID: seat.PlayerID, Name: seat.Name, Stack: seat.Stack})
	}
	slices.SortFunc(s.Seats, func(a, b SeatView) int { return a.Seat - b.Seat })
	s.Spectators = slices.Clone(t.spectators)
	return s
}

// Close shuts the table. It refuses while a hand is running.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handRunning() {
		return reject(ErrHandInProgress, "hand %s is still running", t.hand.ID)
	}
	t.closed = true
	t.logger.Info("table closed", "hands", t.handCount)
	return nil
}

func (t *Table) handRunning() bool {
	return t.hand != nil && !t.hand.IsComplete()
}

func (t *Table) seatOf(playerID string) int {
	return slices.IndexFunc(t.seats, func(s *Seat) bool {
		return s != nil && s.PlayerID == playerID
	})
}

// mutate runs fn against a copy of the hand and commits it only if fn and
// the invariant checks succeed. Callers hold t.mu.
func (t *Table) mutate(fn func(*HandState) error) error {
	if t.halted != nil {
		return reject(ErrTableHalted, "table %s is halted: %v", t.cfg.ID, t.halted)
	}
	if !t.handRunning() {
		return reject(ErrNoHandInProgress, "no hand in progress")
	}

	next := t.hand.Clone()
	if fixed := next.repair(); len(fixed) > 0 {
		t.logger.Warn("repaired inconsistent hand state", "hand", next.ID, "fields", fixed)
	}
	if err := fn(next); err != nil {
		if errors.Is(err, ErrInvariantViolation) {
			return t.halt(err)
		}
		return err
	}
	if err := next.CheckInvariants(); err != nil {
		return t.halt(err)
	}

	t.hand = next
	t.dispatch(next.drainEvents())
	if next.IsComplete() {
		t.finishHand()
	}
	return nil
}

// halt stops the table, keeping the last consistent hand state.
func (t *Table) halt(err error) error {
	t.halted = err
	handID := ""
	if t.hand != nil {
		handID = t.hand.ID
	}
	t.logger.Error("invariant violated, table halted", "hand", handID, "err", err)
	return &ActionError{Code: errorCodes[ErrInvariantViolation], Message: err.Error(), Err: err}
}

// finishHand syncs stacks back to the seats, removes leavers and busted
// players and hands the record to the collaborators.
func (t *Table) finishHand() {
	h := t.hand
	for i, p := range h.Players {
		if p == nil || t.seats[i] == nil || t.seats[i].PlayerID != p.ID {
			continue
		}
		t.seats[i].Stack = p.Stack
	}
	for i, s := range t.seats {
		switch {
		case s == nil:
		case s.Leaving:
			t.logger.Info("player left", "player", s.PlayerID, "seat", i, "stack", s.Stack)
			t.seats[i] = nil
		case s.Stack == 0:
			t.logger.Info("player busted", "player", s.PlayerID, "seat", i)
			t.seats[i] = nil
			t.spectators = append(t.spectators, s.PlayerID)
		}
	}

	for _, w := range h.Winners {
		t.logger.Info("pot awarded", "hand", h.ID, "player", w.PlayerID, "amount", w.Amount, "hand_rank", w.Hand)
	}
	t.logger.Debug("hand complete", "hand", h.ID, "board", poker.FormatCards(h.Board))

	record := h.Record(t.cfg.ID)
	record.StartedAt = t.startedAt
	record.EndedAt = t.clock.Now()
	if t.history != nil {
		t.notify("history", func() error { return t.history.RecordHand(record) })
	}
	if t.stats != nil {
		summary := h.Summary(t.cfg.ID)
		t.notify("stats", func() error { return t.stats.RecordHand(summary) })
	}
}

func (t *Table) dispatch(events []ActionEvent) {
	if t.stats == nil {
		return
	}
	for _, ev := range events {
		ev.TableID = t.cfg.ID
		t.notify("stats", func() error { return t.stats.RecordAction(ev) })
	}
}

// notify calls a collaborator, logging failures instead of propagating them.
func (t *Table) notify(sink string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("collaborator panicked", "sink", sink, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		t.logger.Warn("collaborator failed", "sink", sink, "err", err)
	}
}
