package repository

import (
	"context"
	"sync"

	"github.com/vikinglords/vikinglords-server/internal/game"
	"go.uber.org/zap"
)

// MemoryStore keeps encoded game documents in process. Documents are stored
// as JSON so partial saves merge exactly as they do in the database stores.
type MemoryStore struct {
	logger *zap.Logger
	mu     sync.RWMutex
	docs   map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		logger: logger,
		docs:   make(map[string][]byte),
	}
}

func (s *MemoryStore) CreateGame(ctx context.Context, g *game.Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeGame(g)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[g.ID]; exists {
		return alreadyExists(g.ID)
	}
	s.docs[g.ID] = data
	return nil
}

func (s *MemoryStore) LoadGame(ctx context.Context, id string) (*game.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return decodeGame(data)
}

func (s *MemoryStore) SaveGame(ctx context.Context, id string, patch game.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := encodePatch(patch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[id]
	if !ok {
		return notFound(id)
	}
	merged, err := mergeDocument(data, entries)
	if err != nil {
		return err
	}
	if _, err := decodeGame(merged); err != nil {
		return err
	}
	s.docs[id] = merged

	if s.logger != nil {
		s.logger.Debug("game saved", zap.String("game_id", id), zap.Int("paths", len(entries)))
	}
	return nil
}

func (s *MemoryStore) ListGames(ctx context.Context, filter game.ListFilter) ([]*game.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]*game.Game, 0, len(s.docs))
	for _, data := range s.docs {
		g, err := decodeGame(data)
		if err != nil {
			return nil, err
		}
		if filter.Matches(g) {
			games = append(games, g)
		}
	}
	sortGames(games)
	if filter.Limit > 0 && len(games) > filter.Limit {
		games = games[:filter.Limit]
	}
	return games, nil
}
