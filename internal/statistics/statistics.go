// Package statistics aggregates per-player results from finished hands. An
// Aggregator is a game.StatsSink and is safe for concurrent use by many
// tables.
package statistics

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/lox/holdem-engine/internal/game"
	"github.com/lox/holdem-engine/poker"
)

// CategoryStat tracks results for one hole card category.
type CategoryStat struct {
	Hands int     `json:"hands"`
	NetBB float64 `json:"net_bb"`
	Wins  int     `json:"wins"`
}

// PlayerStats accumulates one player's hands.
type PlayerStats struct {
	PlayerID      string
	Hands         int
	VPIPHands     int
	PFRHands      int
	Aggressive    int
	Calls         int
	SawFlop       int
	WentShowdown  int
	WonAtShowdown int
	Won           int
	Net           int
	Timeouts      int

	sumBB      float64
	sumBB2     float64
	categories map[poker.HoleCardCategory]*CategoryStat
}

func newPlayerStats(id string) *PlayerStats {
	return &PlayerStats{PlayerID: id, categories: make(map[poker.HoleCardCategory]*CategoryStat)}
}

func (p *PlayerStats) add(s game.PlayerSummary, bigBlind int) {
	p.Hands++
	p.Net += s.Net
	p.Aggressive += s.Aggressive
	p.Calls += s.Calls
	if s.VPIP {
		p.VPIPHands++
	}
	if s.PFR {
		p.PFRHands++
	}
	if s.SawFlop {
		p.SawFlop++
	}
	if s.WentShowdown {
		p.WentShowdown++
	}
	if s.WonAtShowdown {
		p.WonAtShowdown++
	}
	if s.Won {
		p.Won++
	}

	netBB := float64(s.Net)
	if bigBlind > 0 {
		netBB /= float64(bigBlind)
	}
	p.sumBB += netBB
	p.sumBB2 += netBB * netBB

	cat := poker.CategorizeString(s.HoleCards)
	if p.categories[cat] == nil {
		p.categories[cat] = &CategoryStat{}
	}
	p.categories[cat].Hands++
	p.categories[cat].NetBB += netBB
	if s.Won {
		p.categories[cat].Wins++
	}
}

func (p *PlayerStats) clone() PlayerStats {
	c := *p
	c.categories = make(map[poker.HoleCardCategory]*CategoryStat, len(p.categories))
	for k, v := range p.categories {
		stat := *v
		c.categories[k] = &stat
	}
	return c
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// VPIP is the share of hands where the player voluntarily put chips in preflop.
func (p PlayerStats) VPIP() float64 { return ratio(p.VPIPHands, p.Hands) }

// PFR is the share of hands where the player raised preflop.
func (p PlayerStats) PFR() float64 { return ratio(p.PFRHands, p.Hands) }

// AggressionFactor is bets and raises per call.
func (p PlayerStats) AggressionFactor() float64 {
	if p.Calls == 0 {
		return float64(p.Aggressive)
	}
	return ratio(p.Aggressive, p.Calls)
}

// ShowdownRate is the share of flops seen that reached showdown.
func (p PlayerStats) ShowdownRate() float64 { return ratio(p.WentShowdown, p.SawFlop) }

// ShowdownWinRate is the share of showdowns won.
func (p PlayerStats) ShowdownWinRate() float64 { return ratio(p.WonAtShowdown, p.WentShowdown) }

// WinRate is the share of hands where the player collected chips.
func (p PlayerStats) WinRate() float64 { return ratio(p.Won, p.Hands) }

// Mean returns the mean result in big blinds per hand.
func (p PlayerStats) Mean() float64 {
	if p.Hands == 0 {
		return 0
	}
	return p.sumBB / float64(p.Hands)
}

// BB100 returns big blinds won per 100 hands.
func (p PlayerStats) BB100() float64 {
	return p.Mean() * 100
}

// StdDev returns the sample standard deviation in big blinds per hand.
func (p PlayerStats) StdDev() float64 {
	if p.Hands < 2 {
		return 0
	}
	mean := p.Mean()
	variance := (p.sumBB2 - float64(p.Hands)*mean*mean) / float64(p.Hands-1)
	if variance < 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// ConfidenceInterval95 returns the 95% confidence interval of BB100.
func (p PlayerStats) ConfidenceInterval95() (float64, float64) {
	if p.Hands == 0 {
		return 0, 0
	}
	margin := 1.96 * p.StdDev() / math.Sqrt(float64(p.Hands)) * 100
	return p.BB100() - margin, p.BB100() + margin
}

// Category returns the stats for a hole card category.
func (p PlayerStats) Category(c poker.HoleCardCategory) CategoryStat {
	if s := p.categories[c]; s != nil {
		return *s
	}
	return CategoryStat{}
}

// Aggregator collects action and hand events from tables.
type Aggregator struct {
	mu      sync.RWMutex
	hands   int
	actions map[string]int // "phase/kind" -> count
	forced  int
	players map[string]*PlayerStats
}

// New creates an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		actions: make(map[string]int),
		players: make(map[string]*PlayerStats),
	}
}

var _ game.StatsSink = (*Aggregator)(nil)

// RecordAction counts an accepted action.
func (a *Aggregator) RecordAction(ev game.ActionEvent) error {
	if ev.PlayerID == "" {
		return fmt.Errorf("action event without player on hand %s", ev.HandID)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions[ev.Phase.String()+"/"+ev.Kind.String()]++
	if ev.Forced {
		a.forced++
		a.player(ev.PlayerID).Timeouts++
	}
	return nil
}

// RecordHand folds a finished hand into each player's totals.
func (a *Aggregator) RecordHand(h game.HandSummary) error {
	if len(h.Players) == 0 {
		return fmt.Errorf("hand %s has no players", h.HandID)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hands++
	for _, s := range h.Players {
		a.player(s.PlayerID).add(s, h.BigBlind)
	}
	return nil
}

func (a *Aggregator) player(id string) *PlayerStats {
	p := a.players[id]
	if p == nil {
		p = newPlayerStats(id)
		a.players[id] = p
	}
	return p
}

// Hands returns the number of hands recorded.
func (a *Aggregator) Hands() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.hands
}

// Actions returns action counts keyed by "PHASE/kind".
func (a *Aggregator) Actions() map[string]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]int, len(a.actions))
	for k, v := range a.actions {
		out[k] = v
	}
	return out
}

// Player returns a copy of one player's stats.
func (a *Aggregator) Player(id string) (PlayerStats, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.players[id]
	if !ok {
		return PlayerStats{}, false
	}
	return p.clone(), true
}

// Players returns every player's stats, biggest winner first.
func (a *Aggregator) Players() []PlayerStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]PlayerStats, 0, len(a.players))
	for _, p := range a.players {
		out = append(out, p.clone())
	}
	slices.SortFunc(out, func(x, y PlayerStats) int {
		if x.Net != y.Net {
			return y.Net - x.Net
		}
		return strings.Compare(x.PlayerID, y.PlayerID)
	})
	return out
}

// PlayerReport is the serialized form of PlayerStats.
type PlayerReport struct {
	PlayerID        string                                  `json:"player_id"`
	Hands           int                                     `json:"hands"`
	Net             int                                     `json:"net"`
	BB100           float64                                 `json:"bb_100"`
	StdDev          float64                                 `json:"std_dev_bb"`
	VPIP            float64                                 `json:"vpip"`
	PFR             float64                                 `json:"pfr"`
	Aggression      float64                                 `json:"aggression"`
	ShowdownRate    float64                                 `json:"showdown_rate"`
	ShowdownWinRate float64                                 `json:"showdown_win_rate"`
	WinRate         float64                                 `json:"win_rate"`
	Timeouts        int                                     `json:"timeouts"`
	Categories      map[poker.HoleCardCategory]CategoryStat `json:"categories,omitempty"`
}

// Report is a point-in-time view of the aggregator.
type Report struct {
	Hands   int            `json:"hands"`
	Forced  int            `json:"forced_actions"`
	Actions map[string]int `json:"actions"`
	Players []PlayerReport `json:"players"`
}

// Report builds a Report.
func (a *Aggregator) Report() Report {
	players := a.Players()
	a.mu.RLock()
	r := Report{Hands: a.hands, Forced: a.forced}
	a.mu.RUnlock()
	r.Actions = a.Actions()
	r.Players = make([]PlayerReport, 0, len(players))
	for _, p := range players {
		pr := PlayerReport{
			PlayerID:        p.PlayerID,
			Hands:           p.Hands,
			Net:             p.Net,
			BB100:           p.BB100(),
			StdDev:          p.StdDev(),
			VPIP:            p.VPIP(),
			PFR:             p.PFR(),
			Aggression:      p.AggressionFactor(),
			ShowdownRate:    p.ShowdownRate(),
			ShowdownWinRate: p.ShowdownWinRate(),
			WinRate:         p.WinRate(),
			Timeouts:        p.Timeouts,
			Categories:      make(map[poker.HoleCardCategory]CategoryStat),
		}
		for k, v := range p.categories {
			pr.Categories[k] = *v
		}
		r.Players = append(r.Players, pr)
	}
	return r
}

// Summary renders the report as plain text.
func (a *Aggregator) Summary() string {
	r := a.Report()
	if r.Hands == 0 {
		return "No hands played"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hands played: %d (%d forced actions)\n", r.Hands, r.Forced)
	for _, p := range r.Players {
		fmt.Fprintf(&b, "%-12s %5d hands %+8d chips %+9.2f bb/100 ±%.2f  VPIP %4.1f%%  PFR %4.1f%%  AF %.2f  WTSD %4.1f%%  W$SD %4.1f%%\n",
			p.PlayerID, p.Hands, p.Net, p.BB100, p.StdDev,
			p.VPIP*100, p.PFR*100, p.Aggression, p.ShowdownRate*100, p.ShowdownWinRate*100)
	}
	return b.String()
}
