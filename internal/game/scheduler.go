package game

// advance puts the next seat that can act on the clock, or clears the turn
// when no seat can.
func (h *HandState) advance() {
	h.setActor(h.nextActionable(h.CurrentActor))
}

func (h *HandState) setActor(seat int) {
	h.CurrentActor = seat
	if seat >= 0 {
		h.Turn++
	}
}

// IsStreetComplete reports whether betting on the current street is closed:
// at most one player remains, or every player who can still act has acted
// and matched the highest bet. Posting a blind is not acting, which is what
// gives the big blind the option preflop.
func (h *HandState) IsStreetComplete() bool {
	if h.countInContention() <= 1 {
		return true
	}

	actionable := 0
	last := -1
	for i, p := range h.Players {
		if !p.CanAct() {
			continue
		}
		actionable++
		last = i
	}
	switch actionable {
	case 0:
		return true
	case 1:
		// Nobody is left to bet against; only an unmatched bet needs a reply.
		return h.Players[last].Bet >= h.HighestBet
	}

	for _, p := range h.Players {
		if !p.CanAct() {
			continue
		}
		if !p.Acted || p.Bet != h.HighestBet {
			return false
		}
	}
	return true
}

// nextActionable scans clockwise after seat for a player who can act.
func (h *HandState) nextActionable(seat int) int {
	n := len(h.Players)
	if seat < 0 {
		seat = n - 1
	}
	for i := 1; i <= n; i++ {
		s := (seat + i) % n
		if h.Players[s].CanAct() {
			return s
		}
	}
	return -1
}

// prevActionable scans counter-clockwise before seat for a player who can act.
func (h *HandState) prevActionable(seat int) int {
	n := len(h.Players)
	for i := 1; i <= n; i++ {
		s := ((seat-i)%n + n) % n
		if h.Players[s].CanAct() {
			return s
		}
	}
	return -1
}

// nextOccupied returns the next dealt-in seat clockwise after seat.
func (h *HandState) nextOccupied(seat int) int {
	n := len(h.Players)
	for i := 1; i <= n; i++ {
		s := (seat + i) % n
		if h.Players[s] != nil {
			return s
		}
	}
	return -1
}

func (h *HandState) countInContention() int {
	n := 0
	for _, p := range h.Players {
		if p.InContention() {
			n++
		}
	}
	return n
}

func (h *HandState) countActionable() int {
	n := 0
	for _, p := range h.Players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

// contenders returns the members of eligible that have not folded.
func (h *HandState) contenders(eligible SeatSet) SeatSet {
	var out SeatSet
	for _, seat := range eligible.Seats() {
		if seat < len(h.Players) && h.Players[seat].InContention() {
			out = out.Add(seat)
		}
	}
	return out
}

// clockwiseFromDealer orders seats by distance from the button, the seat
// after the dealer first and the dealer last.
func (h *HandState) clockwiseFromDealer(seats []int) []int {
	n := len(h.Players)
	out := make([]int, 0, len(seats))
	for i := 1; i <= n; i++ {
		s := (h.Dealer + i) % n
		for _, seat := range seats {
			if seat == s {
				out = append(out, s)
			}
		}
	}
	return out
}
