package game

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/lox/holdem-engine/poker"
)

// settledSplit builds a river showdown where seats 1 and 2 tie on a royal
// flush board and seat 0 folded after putting in one chip: 101 chips in all.
func settledSplit(t *testing.T, dealer int) *HandState {
	t.Helper()
	players := newPlayers(0, 0, 0)
	players[0].Contributed = 1
	players[0].Folded = true
	players[1].Contributed = 50
	players[2].Contributed = 50
	players[0].HoleCards = poker.MustParseCards("9c 9d")
	players[1].HoleCards = poker.MustParseCards("2c 3d")
	players[2].HoleCards = poker.MustParseCards("2d 3c")

	h := &HandState{
		Players:      players,
		Dealer:       dealer,
		Board:        poker.MustParseCards("As Ks Qs Js Ts"),
		Phase:        River,
		CurrentActor: -1,
		Winnings:     make(map[int]int),
	}
	h.Pots = BuildPots(players)
	h.startingTotal = h.TotalChips()
	if err := h.settle([][]poker.Card{h.Board}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	checkInvariants(t, h)
	return h
}

func TestSplitPotOddChipGoesLeftOfDealer(t *testing.T) {
	t.Parallel()
	tests := []struct {
		dealer int
		bigger int
	}{
		{dealer: 0, bigger: 1},
		{dealer: 1, bigger: 2},
		{dealer: 2, bigger: 1}, // seat 0 is next but folded
	}
	for _, tc := range tests {
		h := settledSplit(t, tc.dealer)
		other := 3 - tc.bigger
		if h.Winnings[tc.bigger] != 51 || h.Winnings[other] != 50 {
			t.Errorf("dealer %d: winnings %v, want seat %d to get 51", tc.dealer, h.Winnings, tc.bigger)
		}
		if !h.IsComplete() || h.Phase != HandOver {
			t.Errorf("dealer %d: phase %s", tc.dealer, h.Phase)
		}
		if h.Showdown != NewSeatSet(1, 2) {
			t.Errorf("dealer %d: showdown seats %v", tc.dealer, h.Showdown.Seats())
		}
	}
}

func TestSplitShares(t *testing.T) {
	t.Parallel()
	if got := splitShares(101, 2); !slices.Equal(got, []int{51, 50}) {
		t.Errorf("splitShares(101, 2) = %v", got)
	}
	if got := splitShares(100, 3); !slices.Equal(got, []int{34, 33, 33}) {
		t.Errorf("splitShares(100, 3) = %v", got)
	}
	if got := runShare(101, 2, 0) + runShare(101, 2, 1); got != 101 {
		t.Errorf("run shares sum to %d", got)
	}
	if runShare(101, 2, 0) != 51 {
		t.Errorf("first run should take the odd chip")
	}
}

// Heads-up, both all-in for 50. Seat 0 holds aces and wins the first run,
// seat 1 holds kings and makes trips on the second.
const runTwiceDeck = "Ks As Kd Ad " +
	"2c 7h 8c 3s 4c 9d 5d 2h " + // first run
	"6c Kh Jc 3d Tc 9s Th 2s" // second run

func allInHeadsUp(t *testing.T) *HandState {
	t.Helper()
	h := newStackedHand(t, 0, runTwiceDeck, []int{50, 50}, WithRunItTwice(true))
	mustAct(t, h, "p0", Bet, 50)
	mustAct(t, h, "p1", Call, 0)
	if h.Vote == nil {
		t.Fatalf("expected a run-it-twice vote, phase %s", h.Phase)
	}
	if h.Vote.Voters != NewSeatSet(0, 1) {
		t.Fatalf("voters = %v", h.Vote.Voters.Seats())
	}
	return h
}

func TestRunItTwiceSplitsEachLayer(t *testing.T) {
	t.Parallel()
	h := allInHeadsUp(t)

	if err := h.Act("p0", Check, 0); !errors.Is(err, ErrIllegalAction) {
		t.Fatalf("betting during a vote should be illegal, got %v", err)
	}
	if err := h.CastVote("p0", true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if h.IsComplete() {
		t.Fatal("vote should wait for every contender")
	}
	if err := h.CastVote("p0", true); !errors.Is(err, ErrIllegalAction) {
		t.Errorf("double vote should be rejected, got %v", err)
	}
	if err := h.CastVote("p1", true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	checkInvariants(t, h)

	if !h.IsComplete() {
		t.Fatalf("hand should be settled, phase %s", h.Phase)
	}
	if len(h.Runs) != 2 {
		t.Fatalf("expected two runs, got %d", len(h.Runs))
	}
	if got := poker.FormatCards(h.Runs[0]); !slices.Equal(got, []string{"7h", "8c", "3s", "9d", "2h"}) {
		t.Errorf("first run = %v", got)
	}
	if got := poker.FormatCards(h.Runs[1]); !slices.Equal(got, []string{"Kh", "Jc", "3d", "9s", "2s"}) {
		t.Errorf("second run = %v", got)
	}

	awarded := 0
	for _, r := range h.Results {
		awarded += r.Amount
		if r.Amount != 50 {
			t.Errorf("run %d awarded %d, want 50", r.Run, r.Amount)
		}
	}
	if awarded != 100 {
		t.Errorf("awarded %d across runs, want 100", awarded)
	}
	if h.Results[0].Winners[0] != 0 || h.Results[1].Winners[0] != 1 {
		t.Errorf("run winners %v / %v", h.Results[0].Winners, h.Results[1].Winners)
	}
	if got := stacksOf(h); !slices.Equal(got, []int{50, 50}) {
		t.Errorf("stacks = %v", got)
	}
}

func TestRunItTwiceDeclined(t *testing.T) {
	t.Parallel()
	h := allInHeadsUp(t)
	if err := h.CastVote("p1", false); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if !h.IsComplete() || len(h.Runs) != 0 {
		t.Fatalf("a single no should run the board once: phase %s runs %d", h.Phase, len(h.Runs))
	}
	if got := stacksOf(h); !slices.Equal(got, []int{100, 0}) {
		t.Errorf("stacks = %v", got)
	}
}

func TestRunItTwiceClosedWithMissingVotes(t *testing.T) {
	t.Parallel()
	h := allInHeadsUp(t)
	if err := h.CastVote("p0", true); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := h.CloseVote(); err != nil {
		t.Fatalf("close vote: %v", err)
	}
	if !h.IsComplete() || len(h.Runs) != 0 {
		t.Fatalf("missing ballots count as no: phase %s runs %d", h.Phase, len(h.Runs))
	}
	if err := h.CloseVote(); !errors.Is(err, ErrIllegalAction) {
		t.Errorf("closing twice should fail, got %v", err)
	}
}

func TestRunItTwiceNotOfferedToCoveringStack(t *testing.T) {
	t.Parallel()
	h := newSeededHand(t, 17, 0, 100, 100, 1000)
	h.RunItTwice = true
	mustAct(t, h, "p0", Fold, 0)
	mustAct(t, h, "p1", Bet, 100)
	mustAct(t, h, "p2", Call, 0)
	if h.Players[2].AllIn {
		t.Fatal("big blind should keep chips behind")
	}
	if h.Vote != nil {
		t.Fatalf("vote opened with a player who is not all-in: voters %v", h.Vote.Voters.Seats())
	}
	if !h.IsComplete() || len(h.Board) != 5 || len(h.Runs) != 0 {
		t.Fatalf("board should run once: phase %s board %d runs %d", h.Phase, len(h.Board), len(h.Runs))
	}
	if got := sum(stacksOf(h)); got != 1200 {
		t.Errorf("stacks sum to %d", got)
	}
}

func TestRunItTwiceNotOfferedOnRiver(t *testing.T) {
	t.Parallel()
	h := newSeededHand(t, 41, 0, 1000, 1000)
	h.RunItTwice = true
	mustAct(t, h, "p0", Call, 0)
	mustAct(t, h, "p1", Check, 0)
	for h.Phase != River {
		mustAct(t, h, "p1", Check, 0)
		mustAct(t, h, "p0", Check, 0)
	}
	mustAct(t, h, "p1", Bet, 990)
	mustAct(t, h, "p0", Call, 0)
	if h.Vote != nil || !h.IsComplete() {
		t.Fatalf("river all-in has nothing left to run: vote=%v phase=%s", h.Vote, h.Phase)
	}
}

func TestFoldedLayerIsReturnedToContributors(t *testing.T) {
	t.Parallel()
	players := newPlayers(0, 0, 0)
	players[0].Contributed = 40
	players[0].AllIn = true
	players[1].Contributed = 400
	players[1].Folded = true
	players[2].Contributed = 200
	players[2].Folded = true
	players[0].HoleCards = poker.MustParseCards("2c 3d")

	h := &HandState{Players: players, Phase: Turn, CurrentActor: -1, Winnings: make(map[int]int)}
	h.Pots = BuildPots(players)
	if err := h.settle([][]poker.Card{nil}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	want := map[int]int{0: 120, 1: 360, 2: 160}
	for seat, amount := range want {
		if h.Winnings[seat] != amount {
			t.Errorf("seat %d: got %d, want %d (winnings %v)", seat, h.Winnings[seat], amount, h.Winnings)
		}
	}
	for _, r := range h.Results[1:] {
		if !r.Uncalled {
			t.Errorf("layer %d should be returned, got %+v", r.Layer, r)
		}
		for _, seat := range r.Winners {
			if !r.Eligible.Has(seat) {
				t.Errorf("layer %d paid seat %d outside %v", r.Layer, seat, r.Eligible.Seats())
			}
		}
	}
	if len(h.Winners) != 1 || h.Winners[0].Seat != 0 || h.Winners[0].Amount != 120 {
		t.Errorf("only the main pot is won, got %+v", h.Winners)
	}
}

func TestShortBigBlindDoesNotWinUnmatchedBlind(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		stacks []int
		folds  []string
		want   []int
	}{
		{"heads-up", []int{100, 3}, []string{"p0"}, []int{97, 6}},
		{"three-handed", []int{100, 100, 3}, []string{"p0", "p1"}, []int{100, 97, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newSeededHand(t, 11, 0, tt.stacks...)
			for _, id := range tt.folds {
				mustAct(t, h, id, Fold, 0)
			}
			if !h.IsComplete() {
				t.Fatalf("hand should be over\n%s", h)
			}
			for i, want := range tt.want {
				if got := h.Players[i].Stack; got != want {
					t.Errorf("seat %d stack %d, want %d", i, got, want)
				}
			}
			for _, r := range h.Results {
				for _, seat := range r.Winners {
					if !r.Eligible.Has(seat) {
						t.Errorf("layer %d paid seat %d outside %v", r.Layer, seat, r.Eligible.Seats())
					}
				}
			}
		})
	}
}

// TestRandomHandsConserveChips plays many hands with random legal actions
// and checks conservation, turn validity and pot partition at every step.
func TestRandomHandsConserveChips(t *testing.T) {
	t.Parallel()
	for seed := uint64(1); seed <= 300; seed++ {
		rng := rand.New(rand.NewPCG(seed, 99))
		n := 2 + rng.IntN(5)
		stacks := make([]int, n)
		for i := range stacks {
			stacks[i] = 1 + rng.IntN(400)
		}
		players := newPlayers(stacks...)
		h, err := NewHand(rng, players, rng.IntN(n), 5, 10, WithRunItTwice(seed%3 == 0))
		if err != nil {
			t.Fatalf("seed %d: NewHand: %v", seed, err)
		}
		checkTurnValidity(t, h)

		for step := 0; !h.IsComplete(); step++ {
			if step > 500 {
				t.Fatalf("seed %d: hand did not finish\n%s", seed, h)
			}
			if h.Vote != nil {
				seat := h.Vote.Pending().Seats()[0]
				if err := h.CastVote(h.Players[seat].ID, rng.IntN(4) != 0); err != nil {
					t.Fatalf("seed %d: vote: %v", seed, err)
				}
			} else {
				opts, ok := h.ValidActions()
				if !ok {
					t.Fatalf("seed %d: no valid actions\n%s", seed, h)
				}
				kind := opts.Actions[rng.IntN(len(opts.Actions))]
				amount := 0
				if kind == Bet {
					amount = opts.MinBet + rng.IntN(opts.MaxBet-opts.MinBet+1)
				}
				if err := h.Act(opts.PlayerID, kind, amount); err != nil {
					t.Fatalf("seed %d: %s %s %d: %v\n%s", seed, opts.PlayerID, kind, amount, err, h)
				}
			}
			if err := h.CheckInvariants(); err != nil {
				t.Fatalf("seed %d: %v", seed, err)
			}
			checkTurnValidity(t, h)
		}

		if got := sum(stacksOf(h)); got != sum(stacks) {
			t.Fatalf("seed %d: stacks sum to %d, started with %d", seed, got, sum(stacks))
		}
		contributed, awarded := 0, 0
		for _, p := range h.Players {
			contributed += p.Contributed
		}
		for _, r := range h.Results {
			awarded += r.Amount
			if shares := sum(r.Shares); shares != r.Amount {
				t.Fatalf("seed %d: layer %d shares %d of %d", seed, r.Layer, shares, r.Amount)
			}
		}
		if contributed != awarded {
			t.Fatalf("seed %d: contributed %d, awarded %d", seed, contributed, awarded)
		}
	}
}

func checkTurnValidity(t *testing.T, h *HandState) {
	t.Helper()
	if !h.Phase.IsBetting() || h.Vote != nil {
		if h.CurrentActor != -1 {
			t.Fatalf("no one should be on the clock in %s, got seat %d", h.Phase, h.CurrentActor)
		}
		return
	}
	if h.CurrentActor < 0 || !h.Players[h.CurrentActor].CanAct() {
		t.Fatalf("betting phase %s without a valid actor (%d)\n%s", h.Phase, h.CurrentActor, h)
	}
}
