// Package lobby creates games and manages who sits at them before play.
package lobby

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"github.com/vikinglords/vikinglords-server/internal/game"
	"github.com/vikinglords/vikinglords-server/internal/game/rules"
	"go.uber.org/zap"
)

// DefaultMaxPlayers is the table size of the board game.
const DefaultMaxPlayers = 4

// Manager handles open games. Once a game starts it belongs to the engine.
type Manager struct {
	engine     *game.Engine
	store      game.GameStore
	logger     *zap.Logger
	maxPlayers int
	now        func() time.Time
}

// NewManager creates a lobby over the engine's store.
func NewManager(engine *game.Engine, maxPlayers int, logger *zap.Logger) *Manager {
	if maxPlayers < 2 || maxPlayers > DefaultMaxPlayers {
		maxPlayers = DefaultMaxPlayers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		engine:     engine,
		store:      engine.Store(),
		logger:     logger,
		maxPlayers: maxPlayers,
		now:        time.Now,
	}
}

// Create opens a new game with the creator seated.
func (m *Manager) Create(ctx context.Context, creator game.User, name string) (*game.Game, error) {
	if strings.TrimSpace(creator.ID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "creator id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("%s's game", creator.Name)
	}

	g := game.NewGame(uuid.NewString(), name, creator, m.now().UTC())
	if err := m.store.CreateGame(ctx, g); err != nil {
		return nil, err
	}

	m.publish(rules.EventGameCreated, g.ID, creator.ID, len(g.Players))
	m.logger.Info("game created",
		zap.String("game_id", g.ID),
		zap.String("user_id", creator.ID),
		zap.String("name", name),
	)
	return g, nil
}

// Join seats u at an open game. Joining twice is a no-op.
func (m *Manager) Join(ctx context.Context, gameID string, u game.User) (*game.Game, error) {
	if strings.TrimSpace(u.ID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "user id is required")
	}
	unlock := m.engine.Lock(gameID)
	defer unlock()

	g, err := m.store.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.HasPlayer(u.ID) {
		return g, nil
	}
	if g.Status != game.StatusOpen {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition, "game %s is %s", gameID, g.Status)
	}
	if len(g.Players) >= m.maxPlayers {
		return nil, apperrors.Newf(apperrors.CodeGameFull, "game %s already has %d players", gameID, len(g.Players)).
			WithMetadata("max_players", fmt.Sprint(m.maxPlayers))
	}

	g.Players = append(g.Players, u)
	if err := m.store.SaveGame(ctx, gameID, game.Patch{"players": g.Players}); err != nil {
		return nil, fmt.Errorf("save players of %s: %w", gameID, err)
	}

	m.publish(rules.EventPlayerJoined, gameID, u.ID, len(g.Players))
	m.logger.Info("player joined", zap.String("game_id", gameID), zap.String("user_id", u.ID))
	return g, nil
}

// Leave removes userID from an open game.
func (m *Manager) Leave(ctx context.Context, gameID, userID string) (*game.Game, error) {
	unlock := m.engine.Lock(gameID)
	defer unlock()

	g, err := m.store.LoadGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if g.Status != game.StatusOpen {
		return nil, apperrors.Newf(apperrors.CodeInvalidTransition, "cannot leave game %s once it is %s", gameID, g.Status)
	}

	idx := -1
	for i, p := range g.Players {
		if p.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperrors.Newf(apperrors.CodePermissionDenied, "user %q is not in game %s", userID, gameID)
	}

	g.Players = append(g.Players[:idx], g.Players[idx+1:]...)
	if err := m.store.SaveGame(ctx, gameID, game.Patch{"players": g.Players}); err != nil {
		return nil, fmt.Errorf("save players of %s: %w", gameID, err)
	}

	m.publish(rules.EventPlayerLeft, gameID, userID, len(g.Players))
	m.logger.Info("player left", zap.String("game_id", gameID), zap.String("user_id", userID))
	return g, nil
}

// Start deals the board. Any seated player may start once two have joined.
func (m *Manager) Start(ctx context.Context, gameID, userID string) (*game.Game, error) {
	return m.engine.StartGame(ctx, gameID, userID)
}

// ListOpen returns open games userID could join, newest first: games they
// already sit at and full tables are left out.
func (m *Manager) ListOpen(ctx context.Context, userID string, limit int) ([]*game.Game, error) {
	games, err := m.store.ListGames(ctx, game.ListFilter{Status: game.StatusOpen})
	if err != nil {
		return nil, err
	}

	joinable := games[:0]
	for _, g := range games {
		if g.HasPlayer(userID) || len(g.Players) >= m.maxPlayers {
			continue
		}
		joinable = append(joinable, g)
		if limit > 0 && len(joinable) == limit {
			break
		}
	}
	return joinable, nil
}

// ListForUser returns every game userID is seated at, newest first.
func (m *Manager) ListForUser(ctx context.Context, userID string, limit int) ([]*game.Game, error) {
	return m.store.ListGames(ctx, game.ListFilter{UserID: userID, Limit: limit})
}

func (m *Manager) publish(t rules.EventType, gameID, userID string, players int) {
	evt := rules.NewEventWithAmount(t, gameID, userID, "", players)
	evt.Timestamp = m.now().UTC()
	m.engine.Events().Publish(evt)
}
