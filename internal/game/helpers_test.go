package game

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
)

// noShuffle never swaps, so seats follow join order and decks follow master
// order.
type noShuffle struct{}

func (noShuffle) IntN(n int) int { return n - 1 }

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testUser(name string) User {
	return User{ID: "u-" + strings.ToLower(name), Name: name}
}

// newOpenGame returns an open game with the named players joined in order.
func newOpenGame(names ...string) *Game {
	g := NewGame("game-1", "test", testUser(names[0]), testNow)
	for _, name := range names[1:] {
		g.Players = append(g.Players, testUser(name))
	}
	return g
}

// newSetupGame returns a started game still in setup.
func newSetupGame(t *testing.T, names ...string) *Game {
	t.Helper()
	g, _, err := Start(newOpenGame(names...), noShuffle{}, testNow)
	require.NoError(t, err)
	return g
}

// newPlayGame runs setup: seat i picks Tradeable[i] as common and
// Tradeable[(i+1)%4] as rare, so play begins after one common omen.
func newPlayGame(t *testing.T, names ...string) *Game {
	t.Helper()
	g := newSetupGame(t, names...)
	n := len(names)
	for i := 0; i < n; i++ {
		g = mustApply(t, g, Action{Type: ActionPickCommon, UserID: seat(g, i).User.ID, Resource: ledger.Tradeable[i]})
	}
	for i := n - 1; i >= 0; i-- {
		g = mustApply(t, g, Action{Type: ActionPickRare, UserID: seat(g, i).User.ID, Resource: ledger.Tradeable[(i+1)%4]})
	}
	return g
}

func mustApply(t *testing.T, g *Game, a Action) *Game {
	t.Helper()
	next, _, err := Apply(g, a, noShuffle{}, testNow)
	require.NoError(t, err, "action %s by %s", a.Type, a.UserID)
	return next
}

func seat(g *Game, i int) *PlayerState {
	return g.CurrentState.Players[i]
}

func player(g *Game, name string) *PlayerState {
	return g.CurrentState.Player(testUser(name).ID)
}

func id(name string) string {
	return testUser(name).ID
}

// emptyStashes zeroes every stash so a test can set exact balances.
func emptyStashes(g *Game) {
	for _, p := range g.CurrentState.Players {
		p.Stash = ledger.NewStash()
	}
}

func countFlags(g *Game) (lead, last int) {
	for _, p := range g.CurrentState.Players {
		if p.LeadViking {
			lead++
		}
		if p.LastViking {
			last++
		}
	}
	return lead, last
}
