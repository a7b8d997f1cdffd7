package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"github.com/vikinglords/vikinglords-server/internal/game/deck"
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
)

func TestStartDealsBoard(t *testing.T) {
	g := newSetupGame(t, "Alice", "Bob", "Cara")
	s := g.CurrentState

	assert.Equal(t, StatusStarted, g.Status)
	assert.Equal(t, rules.StepSetup, s.Step)
	assert.Equal(t, 0, s.CurrentPlayerIndex)
	assert.Equal(t, 1, s.Round)
	require.Len(t, s.Players, 3)
	assert.True(t, s.Players[0].LeadViking)
	assert.True(t, s.Players[2].LastViking)
	assert.False(t, s.Players[1].LeadViking || s.Players[1].LastViking)
	assert.Len(t, s.OmenDeck, 21)
	assert.Len(t, s.OfferingDeck, 6)
	assert.ElementsMatch(t, ledger.Tradeable, s.AvailableCommon)
	assert.ElementsMatch(t, ledger.Tradeable, s.AvailableRare)
	assert.Equal(t, DefaultSharedTracks(), s.SharedTracks)

	for _, p := range s.Players {
		assert.Zero(t, p.Stash.TradeableTotal())
		assert.Zero(t, p.Structures[Tavern])
		assert.Empty(t, p.WeregeldOwed)
	}
}

func TestStartShufflesTurnOrder(t *testing.T) {
	open := newOpenGame("Alice", "Bob", "Cara", "Dag")
	g, _, err := Start(open, deck.NewRandom(5), testNow)
	require.NoError(t, err)

	var seated []User
	for _, p := range g.CurrentState.Players {
		seated = append(seated, p.User)
	}
	assert.ElementsMatch(t, open.Players, seated)
	assert.Nil(t, open.CurrentState, "Start must not modify its input")
	assert.Equal(t, StatusOpen, open.Status)
}

func TestStartRequiresTwoOpenPlayers(t *testing.T) {
	_, _, err := Start(newOpenGame("Alice"), noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	started := newSetupGame(t, "Alice", "Bob")
	_, _, err = Start(started, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestSetupPickOrder(t *testing.T) {
	g := newSetupGame(t, "Alice", "Bob", "Cara")

	g = mustApply(t, g, Action{Type: ActionPickCommon, UserID: id("Alice"), Resource: ledger.Blue})
	assert.Equal(t, 1, g.CurrentState.CurrentPlayerIndex)
	g = mustApply(t, g, Action{Type: ActionPickCommon, UserID: id("Bob"), Resource: ledger.Green})
	assert.Equal(t, 2, g.CurrentState.CurrentPlayerIndex)

	// Rare picks wait for every common pick.
	_, _, err := Apply(g, Action{Type: ActionPickRare, UserID: id("Cara"), Resource: ledger.Red}, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	g = mustApply(t, g, Action{Type: ActionPickCommon, UserID: id("Cara"), Resource: ledger.Red})
	assert.Equal(t, 2, g.CurrentState.CurrentPlayerIndex, "last viking picks rare straight after common")

	g = mustApply(t, g, Action{Type: ActionPickRare, UserID: id("Cara"), Resource: ledger.Blue})
	assert.Equal(t, 1, g.CurrentState.CurrentPlayerIndex)
	g = mustApply(t, g, Action{Type: ActionPickRare, UserID: id("Bob"), Resource: ledger.Purple})
	assert.Equal(t, 0, g.CurrentState.CurrentPlayerIndex)
	assert.Equal(t, rules.StepSetup, g.CurrentState.Step)

	g = mustApply(t, g, Action{Type: ActionPickRare, UserID: id("Alice"), Resource: ledger.Green})
	s := g.CurrentState
	assert.Equal(t, rules.StepPlay, s.Step)
	assert.Equal(t, 0, s.CurrentPlayerIndex)
	assert.Equal(t, []ledger.Resource{ledger.Purple}, s.AvailableCommon)
	assert.Equal(t, []ledger.Resource{ledger.Red}, s.AvailableRare)

	assert.Equal(t, ResourcePicks{Common: ledger.Blue, Rare: ledger.Green}, player(g, "Alice").ResourcePicks)
	assert.Equal(t, ResourcePicks{Common: ledger.Green, Rare: ledger.Purple}, player(g, "Bob").ResourcePicks)
	assert.Equal(t, ResourcePicks{Common: ledger.Red, Rare: ledger.Blue}, player(g, "Cara").ResourcePicks)

	// The first omen is a common without longboat bonus.
	assert.Equal(t, []OmenKind{OmenCommon}, s.PlayedOmens)
	assert.Equal(t, 1, player(g, "Alice").Stash[ledger.Blue])
	assert.Equal(t, 1, player(g, "Bob").Stash[ledger.Green])
	assert.Equal(t, 1, player(g, "Cara").Stash[ledger.Red])
}

func TestSetupFourPlayersEmptiesPools(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob", "Cara", "Dag")
	assert.Empty(t, g.CurrentState.AvailableCommon)
	assert.Empty(t, g.CurrentState.AvailableRare)
	assert.Equal(t, rules.StepPlay, g.CurrentState.Step)

	commons := map[ledger.Resource]bool{}
	rares := map[ledger.Resource]bool{}
	for _, p := range g.CurrentState.Players {
		commons[p.ResourcePicks.Common] = true
		rares[p.ResourcePicks.Rare] = true
	}
	assert.Len(t, commons, 4)
	assert.Len(t, rares, 4)
}

func TestSetupRejectsBadPicks(t *testing.T) {
	g := newSetupGame(t, "Alice", "Bob")
	g = mustApply(t, g, Action{Type: ActionPickCommon, UserID: id("Alice"), Resource: ledger.Blue})

	tests := []struct {
		name   string
		action Action
		code   apperrors.Code
	}{
		{"taken resource", Action{Type: ActionPickCommon, UserID: id("Bob"), Resource: ledger.Blue}, apperrors.CodeInvalidTransition},
		{"not tradeable", Action{Type: ActionPickCommon, UserID: id("Bob"), Resource: ledger.Geld}, apperrors.CodeInvalidArgument},
		{"out of turn", Action{Type: ActionPickCommon, UserID: id("Alice"), Resource: ledger.Red}, apperrors.CodeInvalidTransition},
		{"stranger", Action{Type: ActionPickCommon, UserID: "u-mallory", Resource: ledger.Red}, apperrors.CodePermissionDenied},
		{"play action in setup", Action{Type: ActionEndTurn, UserID: id("Bob")}, apperrors.CodeInvalidTransition},
		{"unknown action", Action{Type: "dance", UserID: id("Bob")}, apperrors.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Apply(g, tt.action, noShuffle{}, testNow)
			assert.Equal(t, tt.code, apperrors.GetCode(err), "err = %v", err)
		})
	}
}

func TestApplyRejectsUnstartedGame(t *testing.T) {
	g := newOpenGame("Alice", "Bob")
	_, _, err := Apply(g, Action{Type: ActionEndTurn, UserID: id("Alice")}, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}
