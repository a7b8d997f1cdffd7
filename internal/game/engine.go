package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vikinglords/vikinglords-server/internal/game/deck"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
	"go.uber.org/zap"
)

// Engine loads a game, applies one action and saves the result. Actions on
// the same game are serialized; a failed action saves nothing.
type Engine struct {
	logger   *zap.Logger
	store    GameStore
	shuffler deck.Shuffler
	bus      *rules.EventBus
	recorder *ReplayRecorder
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*gameLock
}

// gameLock is dropped from the engine once nobody holds or waits for it.
type gameLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures an Engine.
type Option func(*Engine)

// WithShuffler sets the randomness used for turn order and decks.
func WithShuffler(s deck.Shuffler) Option {
	return func(e *Engine) { e.shuffler = s }
}

// WithEventBus publishes game events to bus.
func WithEventBus(bus *rules.EventBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithReplayRecorder records a snapshot after every action.
func WithReplayRecorder(r *ReplayRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over store.
func NewEngine(store GameStore, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger: logger,
		store:  store,
		now:    time.Now,
		locks:  make(map[string]*gameLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.shuffler == nil {
		e.shuffler = deck.NewRandom(0)
	}
	if e.bus == nil {
		e.bus = rules.NewEventBus()
	}
	return e
}

// Events returns the bus the engine publishes to.
func (e *Engine) Events() *rules.EventBus {
	return e.bus
}

// Store returns the backing store.
func (e *Engine) Store() GameStore {
	return e.store
}

// Lock serializes work on one game and returns the unlock func.
func (e *Engine) Lock(gameID string) func() {
	e.mu.Lock()
	l, ok := e.locks[gameID]
	if !ok {
		l = &gameLock{}
		e.locks[gameID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, gameID)
		}
		e.mu.Unlock()
	}
}

// lockedGames reports how many games currently have a lock entry.
func (e *Engine) lockedGames() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.locks)
}

// GetGame loads a game.
func (e *Engine) GetGame(ctx context.Context, gameID string) (*Game, error) {
	return e.store.LoadGame(ctx, gameID)
}

// StartGame deals a started board for an open game. userID must be seated.
func (e *Engine) StartGame(ctx context.Context, gameID, userID string) (*Game, error) {
	unlock := e.Lock(gameID)
	defer unlock()

	g, err := e.store.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !g.HasPlayer(userID) {
		return nil, permissionDenied("user %q is not playing game %s", userID, gameID)
	}

	next, events, err := Start(g, e.shuffler, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveGame(ctx, gameID, Patch{
		"status":       next.Status,
		"currentState": next.CurrentState,
	}); err != nil {
		return nil, fmt.Errorf("save started game %s: %w", gameID, err)
	}

	if e.recorder != nil {
		e.recorder.Begin(next)
	}
	e.publish(events)

	if e.logger != nil {
		e.logger.Info("game started",
			zap.String("game_id", gameID),
			zap.Int("players", len(next.CurrentState.Players)),
		)
	}
	return next, nil
}

// ProcessAction applies a to the stored game and persists the result.
func (e *Engine) ProcessAction(ctx context.Context, gameID string, a Action) (*Game, error) {
	unlock := e.Lock(gameID)
	defer unlock()

	g, err := e.store.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	next, events, err := Apply(g, a, e.shuffler, e.now())
	if err != nil {
		if e.logger != nil {
			e.logger.Debug("action rejected",
				zap.String("game_id", gameID),
				zap.String("user_id", a.UserID),
				zap.String("action", string(a.Type)),
				zap.Error(err),
			)
		}
		return nil, err
	}

	if err := e.store.SaveGame(ctx, gameID, StatePatch(next)); err != nil {
		return nil, fmt.Errorf("save game %s: %w", gameID, err)
	}

	if e.recorder != nil {
		e.recorder.Record(next)
		if next.Status == StatusComplete {
			if err := e.recorder.Finish(gameID); err != nil && e.logger != nil {
				e.logger.Warn("failed to save replay", zap.String("game_id", gameID), zap.Error(err))
			}
		}
	}
	e.publish(events)

	if e.logger != nil {
		e.logger.Debug("action applied",
			zap.String("game_id", gameID),
			zap.String("user_id", a.UserID),
			zap.String("action", string(a.Type)),
			zap.Int("events", len(events)),
		)
	}
	return next, nil
}

// ReplayStep returns step index of a game's replay and the number of steps
// recorded. Only seated players may watch a replay.
func (e *Engine) ReplayStep(ctx context.Context, gameID, userID string, index int) (*Game, int, error) {
	if e.recorder == nil {
		return nil, 0, invalidTransition("replays are not recorded on this server")
	}
	g, err := e.store.LoadGame(ctx, gameID)
	if err != nil {
		return nil, 0, err
	}
	if !g.HasPlayer(userID) {
		return nil, 0, permissionDenied("user %q is not playing game %s", userID, gameID)
	}

	r, err := e.recorder.Replay(gameID)
	if err != nil {
		return nil, 0, err
	}
	step, err := r.At(index)
	if err != nil {
		return nil, 0, err
	}
	return step, r.Len(), nil
}

func (e *Engine) publish(events []rules.Event) {
	e.bus.PublishBatch(events)
}
