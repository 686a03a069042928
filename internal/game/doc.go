// Package game is the authoritative state machine for no-limit hold'em cash
// games.
//
// HandState runs a single hand from the blinds to the payout. It validates
// every action, keeps turn order, layers contributions into main and side
// pots and settles them at showdown, including split pots and boards run
// twice. Table wraps a HandState with seats, dealer rotation and a mutex so
// that exactly one goroutine mutates a hand at a time.
//
// # Basic Usage
//
//	players := []*game.Player{
//	    game.NewPlayer("alice", "Alice", 1000),
//	    game.NewPlayer("bob", "Bob", 1000),
//	    game.NewPlayer("carol", "Carol", 1000),
//	}
//	rng := rand.New(rand.NewPCG(42, 0))
//	h, err := game.NewHand(rng, players, 0, 5, 10)
//	if err != nil {
//	    return err
//	}
//	err = h.Act("alice", game.Bet, 30)
//
// Actions are applied through Act (or Table.SubmitAction), which validates
// the move, passes the turn and deals further streets as betting closes.
// Invalid moves return an *ActionError and leave the hand unchanged.
//
// # Deterministic Testing
//
// WithDeck deals from a scripted deck:
//
//	deck := poker.NewStackedDeck(poker.MustParseCards("As Ks Qd Jd 2c 7h 8h 9h Tc 2s 3d 4d 5d 6d")...)
//	h, err := game.NewHand(nil, players, 0, 5, 10, game.WithDeck(deck))
//
// Hole cards are dealt one at a time starting left of the dealer, then each
// street is burned and dealt.
//
// # Collaborators
//
// Tables report to a StatsSink and a HistorySink supplied at construction.
// Their failures are logged and never affect the hand.
package game
