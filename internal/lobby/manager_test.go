package lobby

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"github.com/vikinglords/vikinglords-server/internal/game"
	"github.com/vikinglords/vikinglords-server/internal/game/deck"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
	"github.com/vikinglords/vikinglords-server/internal/repository"
	"go.uber.org/zap/zaptest"
)

func newTestManager(t *testing.T, maxPlayers int) *Manager {
	t.Helper()
	logger := zaptest.NewLogger(t)
	engine := game.NewEngine(repository.NewMemoryStore(logger), logger, game.WithShuffler(deck.NewRandom(1)))
	return NewManager(engine, maxPlayers, logger)
}

func u(name string) game.User {
	return game.User{ID: "u-" + name, Name: name}
}

func TestCreate(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	var events []rules.Event
	m.engine.Events().Subscribe(func(e rules.Event) { events = append(events, e) })

	g, err := m.Create(ctx, u("ada"), "  ")
	require.NoError(t, err)
	assert.Equal(t, "ada's game", g.Name)
	assert.Equal(t, game.StatusOpen, g.Status)
	assert.Equal(t, []game.User{u("ada")}, g.Players)
	assert.Len(t, g.Marketplace, 7)
	require.Len(t, events, 1)
	assert.Equal(t, rules.EventGameCreated, events[0].Type)

	_, err = m.Create(ctx, game.User{}, "x")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidArgument))
}

func TestJoinAndLeave(t *testing.T) {
	m := newTestManager(t, 2)
	ctx := context.Background()
	g, err := m.Create(ctx, u("ada"), "longhall")
	require.NoError(t, err)

	joined, err := m.Join(ctx, g.ID, u("bo"))
	require.NoError(t, err)
	assert.Len(t, joined.Players, 2)

	again, err := m.Join(ctx, g.ID, u("bo"))
	require.NoError(t, err, "joining twice is idempotent")
	assert.Len(t, again.Players, 2)

	_, err = m.Join(ctx, g.ID, u("cy"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeGameFull))

	_, err = m.Leave(ctx, g.ID, "u-cy")
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))

	left, err := m.Leave(ctx, g.ID, "u-bo")
	require.NoError(t, err)
	assert.Equal(t, []game.User{u("ada")}, left.Players)

	stored, err := m.store.LoadGame(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []game.User{u("ada")}, stored.Players)

	_, err = m.Join(ctx, "missing", u("bo"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestStart(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()
	g, err := m.Create(ctx, u("ada"), "longhall")
	require.NoError(t, err)

	_, err = m.Start(ctx, g.ID, "u-ada")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition), "one player cannot start")

	_, err = m.Join(ctx, g.ID, u("bo"))
	require.NoError(t, err)
	_, err = m.Join(ctx, g.ID, u("cy"))
	require.NoError(t, err)

	started, err := m.Start(ctx, g.ID, "u-cy")
	require.NoError(t, err)
	assert.Equal(t, game.StatusStarted, started.Status)
	assert.Len(t, started.CurrentState.Players, 3)
	assert.Equal(t, rules.StepSetup, started.CurrentState.Step)

	_, err = m.Join(ctx, g.ID, u("di"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
	_, err = m.Leave(ctx, g.ID, "u-bo")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestListings(t *testing.T) {
	m := newTestManager(t, 4)
	ctx := context.Background()

	first, err := m.Create(ctx, u("ada"), "first")
	require.NoError(t, err)
	second, err := m.Create(ctx, u("bo"), "second")
	require.NoError(t, err)
	_, err = m.Join(ctx, second.ID, u("ada"))
	require.NoError(t, err)
	_, err = m.Start(ctx, second.ID, "u-bo")
	require.NoError(t, err)

	open, err := m.ListOpen(ctx, "u-cy", 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, first.ID, open[0].ID)

	open, err = m.ListOpen(ctx, "u-ada", 10)
	require.NoError(t, err)
	assert.Empty(t, open, "games the caller sits at are not offered")

	mine, err := m.ListForUser(ctx, "u-ada", 0)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := m.ListForUser(ctx, "u-bo", 0)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, second.ID, theirs[0].ID)
}

func TestListOpenSkipsFullTables(t *testing.T) {
	m := newTestManager(t, 2)
	ctx := context.Background()

	full, err := m.Create(ctx, u("ada"), "full")
	require.NoError(t, err)
	_, err = m.Join(ctx, full.ID, u("bo"))
	require.NoError(t, err)
	seat, err := m.Create(ctx, u("cy"), "one seat left")
	require.NoError(t, err)
	_, err = m.Create(ctx, u("dag"), "another")
	require.NoError(t, err)

	open, err := m.ListOpen(ctx, "u-eir", 0)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, g := range open {
		assert.NotEqual(t, full.ID, g.ID)
	}

	limited, err := m.ListOpen(ctx, "u-eir", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	open, err = m.ListOpen(ctx, "u-dag", 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, seat.ID, open[0].ID)
}
