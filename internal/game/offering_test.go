package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
)

// offer has Alice buy an offering with the given card on top of the deck.
func offer(t *testing.T, g *Game, card OfferingKind) *Game {
	t.Helper()
	alice := player(g, "Alice")
	alice.Stash.Give(ledger.Blue, 1)
	alice.Stash.Give(ledger.Red, 1)
	alice.Stash.Give(ledger.Purple, 1)
	g.CurrentState.OfferingDeck = []OfferingKind{card, OfferingFortune}
	g = mustApply(t, g, Action{Type: ActionBuyMarketplace, UserID: id("Alice"), Good: GoodOffering})
	assert.Equal(t, []OfferingKind{card}, g.CurrentState.PlayedOfferings[len(g.CurrentState.PlayedOfferings)-1:])
	return g
}

func TestScourgeOffering(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob")
	emptyStashes(g)
	bob := player(g, "Bob")
	bob.Stash[ledger.Geld] = 5
	bob.Stash[ledger.Blue] = 2
	bob.Stash[ledger.Green] = 2

	g = offer(t, g, OfferingScourge)
	bob = player(g, "Bob")
	assert.Equal(t, 3, bob.Stash[ledger.Geld])
	assert.Equal(t, 2, bob.ResourcesLeftToScourge)
	assert.Zero(t, player(g, "Alice").ResourcesLeftToScourge, "the buyer is spared")

	_, _, err := Apply(g, Action{Type: ActionScourgeResource, UserID: id("Bob"), Resource: ledger.Red}, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientResource))

	g = mustApply(t, g, Action{Type: ActionScourgeResource, UserID: id("Bob"), Resource: ledger.Blue})
	g = mustApply(t, g, Action{Type: ActionScourgeResource, UserID: id("Bob"), Resource: ledger.Green})
	bob = player(g, "Bob")
	assert.Zero(t, bob.ResourcesLeftToScourge)
	assert.Equal(t, 2, bob.Stash.TradeableTotal())

	_, _, err = Apply(g, Action{Type: ActionScourgeResource, UserID: id("Bob"), Resource: ledger.Blue}, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestSmiteOffering(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob")
	emptyStashes(g)
	player(g, "Bob").Structures[MeadHall] = 1

	g = offer(t, g, OfferingSmite)
	alice := player(g, "Alice")
	require.True(t, alice.Smiting)
	require.True(t, alice.DecidingWhoToSmite)

	_, _, err := Apply(g, Action{Type: ActionEndTurn, UserID: id("Alice")}, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	_, _, err = Apply(g, Action{Type: ActionChooseWhatToSmite, UserID: id("Alice"), Structure: MeadHall}, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition), "target comes first")

	g = mustApply(t, g, Action{Type: ActionChooseWhoToSmite, UserID: id("Alice"), TargetUserID: id("Bob")})
	g = mustApply(t, g, Action{Type: ActionChooseWhatToSmite, UserID: id("Alice"), Structure: MeadHall})
	alice = player(g, "Alice")
	assert.False(t, alice.Smiting)
	assert.Zero(t, player(g, "Bob").Structures[MeadHall])
	assert.Equal(t, 1, alice.Stash[ledger.Weregeld])
	assert.Equal(t, []string{id("Bob")}, alice.WeregeldOwed)
}

func TestSmiteCancelledRefundsGods(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob")
	emptyStashes(g)
	g = offer(t, g, OfferingSmite)

	g = mustApply(t, g, Action{Type: ActionChooseWhoToSmite, UserID: id("Alice")})
	alice := player(g, "Alice")
	assert.False(t, alice.Smiting)
	assert.Equal(t, 1, alice.Stash[ledger.Gods])
}

func TestSmiteTargetWithoutStructures(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob")
	emptyStashes(g)
	g = offer(t, g, OfferingSmite)
	g = mustApply(t, g, Action{Type: ActionChooseWhoToSmite, UserID: id("Alice"), TargetUserID: id("Bob")})

	g = mustApply(t, g, Action{Type: ActionChooseWhatToSmite, UserID: id("Alice")})
	assert.False(t, player(g, "Alice").Smiting)
	assert.Zero(t, player(g, "Alice").Stash[ledger.Weregeld])
}

func TestBountyOffering(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob", "Cara")
	emptyStashes(g)
	player(g, "Bob").Structures[Longboat] = 2
	player(g, "Cara").Structures[Longboat] = 1
	player(g, "Alice").Structures[Longboat] = 5

	g = offer(t, g, OfferingBounty)
	require.True(t, player(g, "Alice").CollectingBounty)

	_, _, err := Apply(g, Action{Type: ActionCollectBounty, UserID: id("Alice"), Resource: ledger.Geld}, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))

	g = mustApply(t, g, Action{Type: ActionCollectBounty, UserID: id("Alice"), Resource: ledger.Purple})
	alice := player(g, "Alice")
	assert.Equal(t, 5, alice.Stash[ledger.Purple])
	assert.False(t, alice.CollectingBounty)
}

func TestHonorOffering(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob")
	emptyStashes(g)
	g = offer(t, g, OfferingHonor)

	assert.Equal(t, 1, player(g, "Alice").Stash[ledger.Prestige])
	tribute := g.CurrentState.track(TrackTribute)
	assert.True(t, tribute.Slots[0].Bought)
	assert.True(t, tribute.Slots[1].Available)
	assert.Zero(t, player(g, "Alice").Stash[ledger.Geld], "honor takes the slot for free")
}

func TestFortuneOffering(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob")
	emptyStashes(g)
	bob := player(g, "Bob")
	bob.Structures[Tavern] = 1
	bob.Structures[MeadHall] = 1

	g = offer(t, g, OfferingFortune)
	assert.Equal(t, 4, player(g, "Alice").Stash[ledger.Geld])
}

func TestValkyrieOffering(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob")
	emptyStashes(g)
	player(g, "Bob").Clansmen[Viking] = 1

	g = offer(t, g, OfferingValkyrie)
	alice := player(g, "Alice")
	assert.Equal(t, 1, alice.Stash[ledger.Gods])
	require.True(t, alice.Valkyring)

	g = mustApply(t, g, Action{Type: ActionChooseWhoToValkyrie, UserID: id("Alice"), TargetUserID: id("Bob")})

	_, _, err := Apply(g, Action{Type: ActionChooseWhatToValkyrie, UserID: id("Alice")}, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
	_, _, err = Apply(g, Action{Type: ActionChooseWhatToValkyrie, UserID: id("Alice"), Clansman: Skald}, noShuffle{}, testNow)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInsufficientResource))

	g = mustApply(t, g, Action{Type: ActionChooseWhatToValkyrie, UserID: id("Alice"), Clansman: Viking})
	bob := player(g, "Bob")
	assert.Zero(t, bob.Clansmen[Viking])
	assert.Equal(t, 1, bob.Stash[ledger.Einherjar])
	assert.False(t, player(g, "Alice").Valkyring)
}

func TestResetOfferings(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob")
	emptyStashes(g)
	player(g, "Bob").Stash[ledger.Blue] = 4
	g = offer(t, g, OfferingScourge)
	require.Equal(t, 2, player(g, "Bob").ResourcesLeftToScourge)

	g = mustApply(t, g, Action{Type: ActionResetOfferings, UserID: id("Bob")})
	for _, p := range g.CurrentState.Players {
		assert.False(t, p.Busy(), p.User.Name)
	}
}

func TestOfferingDeckRefillsWhenEmpty(t *testing.T) {
	g := newPlayGame(t, "Alice", "Bob")
	emptyStashes(g)
	alice := player(g, "Alice")
	alice.Stash[ledger.Blue] = 1
	alice.Stash[ledger.Red] = 1
	alice.Stash[ledger.Purple] = 1
	g.CurrentState.OfferingDeck = []OfferingKind{}
	g.CurrentState.PlayedOfferings = []OfferingKind{OfferingFortune}

	g = mustApply(t, g, Action{Type: ActionBuyMarketplace, UserID: id("Alice"), Good: GoodOffering})
	s := g.CurrentState
	assert.Equal(t, []OfferingKind{OfferingSmite}, s.PlayedOfferings)
	assert.Len(t, s.OfferingDeck, len(DefaultOfferings())-1)
}
