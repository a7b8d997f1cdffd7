package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"github.com/vikinglords/vikinglords-server/internal/game/ledger"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
	"go.uber.org/zap/zaptest"
)

// fakeStore keeps documents in memory and understands the top level paths
// the engine writes.
type fakeStore struct {
	mu    sync.Mutex
	games map[string]*Game
	saves int
}

func newFakeStore(games ...*Game) *fakeStore {
	s := &fakeStore{games: make(map[string]*Game)}
	for _, g := range games {
		s.games[g.ID] = g.Clone()
	}
	return s
}

func (s *fakeStore) CreateGame(_ context.Context, g *Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g.Clone()
	return nil
}

func (s *fakeStore) LoadGame(_ context.Context, id string) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "game %s not found", id)
	}
	return g.Clone(), nil
}

func (s *fakeStore) SaveGame(_ context.Context, id string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return apperrors.Newf(apperrors.CodeNotFound, "game %s not found", id)
	}
	for path, value := range patch {
		switch path {
		case "status":
			g.Status = value.(Status)
		case "currentState":
			g.CurrentState = value.(*CurrentState).Clone()
		case "commands":
			g.Commands = append([]Command{}, value.([]Command)...)
		default:
			return fmt.Errorf("unexpected path %q", path)
		}
	}
	s.saves++
	return nil
}

func (s *fakeStore) ListGames(_ context.Context, filter ListFilter) ([]*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Game
	for _, g := range s.games {
		if filter.Matches(g) {
			out = append(out, g.Clone())
		}
	}
	return out, nil
}

func newTestEngine(t *testing.T, store GameStore, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{
		WithShuffler(noShuffle{}),
		WithClock(func() time.Time { return testNow }),
	}, opts...)
	return NewEngine(store, zaptest.NewLogger(t), opts...)
}

func TestEngineStartGame(t *testing.T) {
	store := newFakeStore(newOpenGame("Alice", "Bob"))
	engine := newTestEngine(t, store)
	ctx := context.Background()

	_, err := engine.StartGame(ctx, "game-1", "u-stranger")
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))

	var started []rules.Event
	engine.Events().SubscribeTyped(rules.EventGameStarted, func(e rules.Event) {
		started = append(started, e)
	})

	g, err := engine.StartGame(ctx, "game-1", id("Bob"))
	require.NoError(t, err)
	assert.Equal(t, StatusStarted, g.Status)
	require.Len(t, started, 1)
	assert.Equal(t, 2, started[0].Amount)

	stored, err := store.LoadGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, rules.StepSetup, stored.CurrentState.Step)

	_, err = engine.StartGame(ctx, "game-1", id("Bob"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestEngineProcessAction(t *testing.T) {
	store := newFakeStore(newOpenGame("Alice", "Bob"))
	engine := newTestEngine(t, store)
	ctx := context.Background()

	_, err := engine.StartGame(ctx, "game-1", id("Alice"))
	require.NoError(t, err)

	var received []rules.Event
	engine.Events().Subscribe(func(e rules.Event) { received = append(received, e) })

	g, err := engine.ProcessAction(ctx, "game-1", Action{Type: ActionPickCommon, UserID: id("Alice"), Resource: "blue"})
	require.NoError(t, err)
	assert.Equal(t, 1, g.CurrentState.CurrentPlayerIndex)
	require.Len(t, received, 1)
	assert.Equal(t, rules.EventResourcePicked, received[0].Type)
	assert.Equal(t, "game-1", received[0].GameID)

	stored, err := store.LoadGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, "blue", string(stored.CurrentState.Player(id("Alice")).ResourcePicks.Common))
}

func TestEngineRejectedActionSavesNothing(t *testing.T) {
	store := newFakeStore(newOpenGame("Alice", "Bob"))
	engine := newTestEngine(t, store)
	ctx := context.Background()

	_, err := engine.StartGame(ctx, "game-1", id("Alice"))
	require.NoError(t, err)
	saves := store.saves
	before, err := store.LoadGame(ctx, "game-1")
	require.NoError(t, err)

	var received []rules.Event
	engine.Events().Subscribe(func(e rules.Event) { received = append(received, e) })

	_, err = engine.ProcessAction(ctx, "game-1", Action{Type: ActionPickCommon, UserID: id("Bob"), Resource: "blue"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
	assert.Equal(t, saves, store.saves)
	assert.Empty(t, received)

	after, err := store.LoadGame(ctx, "game-1")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = engine.ProcessAction(ctx, "missing", Action{Type: ActionEndTurn, UserID: id("Alice")})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestEngineSerializesConcurrentActions(t *testing.T) {
	store := newFakeStore(newOpenGame("Alice", "Bob"))
	engine := newTestEngine(t, store)
	ctx := context.Background()
	_, err := engine.StartGame(ctx, "game-1", id("Alice"))
	require.NoError(t, err)

	// Both requests race for Alice's pick; exactly one may win.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, r := range []string{"blue", "green"} {
		wg.Add(1)
		go func(i int, r string) {
			defer wg.Done()
			_, errs[i] = engine.ProcessAction(ctx, "game-1", Action{Type: ActionPickCommon, UserID: id("Alice"), Resource: ledger.Resource(r)})
		}(i, r)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
		}
	}
	assert.Equal(t, 1, failures)
}

func TestEngineRecordsReplay(t *testing.T) {
	store := newFakeStore(newOpenGame("Alice", "Bob"))
	recorder := NewReplayRecorder(zaptest.NewLogger(t), t.TempDir())
	engine := newTestEngine(t, store, WithReplayRecorder(recorder))
	ctx := context.Background()

	_, err := engine.StartGame(ctx, "game-1", id("Alice"))
	require.NoError(t, err)
	_, err = engine.ProcessAction(ctx, "game-1", Action{Type: ActionPickCommon, UserID: id("Alice"), Resource: "blue"})
	require.NoError(t, err)

	first, steps, err := engine.ReplayStep(ctx, "game-1", id("Bob"), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, steps)
	assert.Empty(t, first.CurrentState.Players[0].ResourcePicks.Common)

	second, _, err := engine.ReplayStep(ctx, "game-1", id("Bob"), 1)
	require.NoError(t, err)
	assert.Equal(t, ledger.Blue, second.CurrentState.Players[0].ResourcePicks.Common)

	_, _, err = engine.ReplayStep(ctx, "game-1", id("Bob"), 2)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnknownReference))
	_, _, err = engine.ReplayStep(ctx, "game-1", "u-stranger", 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))

	plain := newTestEngine(t, store)
	_, _, err = plain.ReplayStep(ctx, "game-1", id("Bob"), 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestEngineReleasesGameLocks(t *testing.T) {
	engine := newTestEngine(t, newFakeStore())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		overlap bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := engine.Lock(fmt.Sprintf("game-%d", i%3))
			defer unlock()
			if i%3 == 0 {
				mu.Lock()
				holders++
				if holders > 1 {
					overlap = true
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				holders--
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.False(t, overlap, "two holders of one game lock")
	assert.Zero(t, engine.lockedGames())
}
