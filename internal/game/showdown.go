package game

import (
	"github.com/lox/holdem-engine/poker"
)

// settle awards every pot layer on each board and ends the hand. With more
// than one board each layer is split evenly between the runs, the odd chip
// going to the first run.
func (h *HandState) settle(boards [][]poker.Card) error {
	if h.Phase.IsBetting() && h.countInContention() > 1 {
		h.Phase = Showdown
	}
	h.CurrentActor = -1
	if h.Winnings == nil {
		h.Winnings = make(map[int]int)
	}

	ranks := make([]map[int]poker.HandRank, len(boards))
	for layer, pot := range h.Pots {
		contenders := h.contenders(pot.Eligible)
		if contenders.Len() == 0 {
			h.refund(layer, pot)
			continue
		}

		for run, board := range boards {
			amount := runShare(pot.Amount, len(boards), run)
			if amount == 0 {
				continue
			}
			result := PotResult{
				Run:      run,
				Layer:    layer,
				Amount:   amount,
				Eligible: pot.Eligible,
				Uncalled: pot.Eligible.Len() == 1,
			}
			winners := contenders.Seats()
			if len(winners) > 1 {
				if ranks[run] == nil {
					ranks[run] = h.rankContenders(board)
				}
				var best poker.HandRank
				winners, best = bestHands(winners, ranks[run])
				result.Hand = best.String()
				h.Showdown |= contenders
			}
			result.Winners = h.clockwiseFromDealer(winners)
			result.Shares = splitShares(amount, len(result.Winners))
			for i, seat := range result.Winners {
				h.Winnings[seat] += result.Shares[i]
			}
			h.Results = append(h.Results, result)
		}
	}

	h.finish(ranks)
	return nil
}

// refund returns a layer nobody still in the hand paid into. Every
// contributor put the same amount into a layer, so it divides exactly.
func (h *HandState) refund(layer int, pot Pot) {
	seats := pot.Eligible.Seats()
	if len(seats) == 0 {
		return
	}
	result := PotResult{
		Layer:    layer,
		Amount:   pot.Amount,
		Eligible: pot.Eligible,
		Uncalled: true,
		Winners:  seats,
		Shares:   splitShares(pot.Amount, len(seats)),
	}
	for i, seat := range seats {
		h.Winnings[seat] += result.Shares[i]
	}
	h.Results = append(h.Results, result)
}

// finish pays out winnings and closes the hand.
func (h *HandState) finish(ranks []map[int]poker.HandRank) {
	for seat, amount := range h.Winnings {
		h.Players[seat].Stack += amount
	}
	h.Pots = nil

	totals := make(map[int]int)
	for _, r := range h.Results {
		if r.Uncalled {
			continue
		}
		for i, seat := range r.Winners {
			totals[seat] += r.Shares[i]
		}
	}
	h.Winners = nil
	for seat, p := range h.Players {
		amount, ok := totals[seat]
		if !ok || amount == 0 {
			continue
		}
		w := Winner{Seat: seat, PlayerID: p.ID, Amount: amount}
		if len(ranks) > 0 && ranks[0] != nil {
			if rank, ok := ranks[0][seat]; ok {
				w.Hand = rank.String()
			}
		}
		h.Winners = append(h.Winners, w)
	}
	h.Phase = HandOver
}

func (h *HandState) rankContenders(board []poker.Card) map[int]poker.HandRank {
	ranks := make(map[int]poker.HandRank)
	for seat, p := range h.Players {
		if !p.InContention() {
			continue
		}
		cards := make([]poker.Card, 0, 7)
		cards = append(cards, p.HoleCards...)
		cards = append(cards, board...)
		ranks[seat] = poker.Evaluate(cards)
	}
	return ranks
}

// bestHands returns the seats holding the strongest hand.
func bestHands(seats []int, ranks map[int]poker.HandRank) ([]int, poker.HandRank) {
	var best poker.HandRank
	var winners []int
	for i, seat := range seats {
		rank := ranks[seat]
		switch cmp := rank.Compare(best); {
		case i == 0 || cmp > 0:
			best = rank
			winners = []int{seat}
		case cmp == 0:
			winners = append(winners, seat)
		}
	}
	return winners, best
}

// runShare is the part of amount settled on the given run.
func runShare(amount, runs, run int) int {
	part := amount / runs
	if run == 0 {
		return amount - part*(runs-1)
	}
	return part
}

// splitShares divides amount evenly; the indivisible remainder goes to the
// first share.
func splitShares(amount, n int) []int {
	shares := make([]int, n)
	if n == 0 {
		return shares
	}
	each := amount / n
	for i := range shares {
		shares[i] = each
	}
	shares[0] += amount % n
	return shares
}
