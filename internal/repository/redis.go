package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vikinglords/vikinglords-server/internal/config"
	"github.com/vikinglords/vikinglords-server/internal/game"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix  = "vikinglords:game:"
	redisIndexKey   = "vikinglords:games"
	redisMaxRetries = 5
)

// RedisStore keeps one JSON document per key and a sorted set of game IDs
// scored by creation time.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisClient connects to the configured server and pings it.
func NewRedisClient(ctx context.Context, cfg config.DatabaseConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// NewRedisStore creates a store over client.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func gameKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) CreateGame(ctx context.Context, g *game.Game) error {
	doc, err := encodeGame(g)
	if err != nil {
		return err
	}
	created, err := s.client.SetNX(ctx, gameKey(g.ID), doc, 0).Result()
	if err != nil {
		return fmt.Errorf("create game %s: %w", g.ID, err)
	}
	if !created {
		return alreadyExists(g.ID)
	}
	err = s.client.ZAdd(ctx, redisIndexKey, redis.Z{
		Score:  float64(g.CreatedAt.UnixMilli()),
		Member: g.ID,
	}).Err()
	if err != nil {
		return fmt.Errorf("index game %s: %w", g.ID, err)
	}
	return nil
}

func (s *RedisStore) LoadGame(ctx context.Context, id string) (*game.Game, error) {
	doc, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	return decodeGame(doc)
}

// SaveGame merges the patch into the stored document inside WATCH/MULTI and
// retries when another writer touched the key first.
func (s *RedisStore) SaveGame(ctx context.Context, id string, patch game.Patch) error {
	entries, err := encodePatch(patch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	key := gameKey(id)

	txf := func(tx *redis.Tx) error {
		doc, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return notFound(id)
			}
			return err
		}
		merged, err := mergeDocument(doc, entries)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, merged, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < redisMaxRetries; attempt++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		if s.logger != nil {
			s.logger.Debug("redis save conflict, retrying", zap.String("game_id", id), zap.Int("attempt", attempt+1))
		}
	}
	if err != nil {
		return fmt.Errorf("save game %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) ListGames(ctx context.Context, filter game.ListFilter) ([]*game.Game, error) {
	ids, err := s.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	if len(ids) == 0 {
		return []*game.Game{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(id)
	}
	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	games := make([]*game.Game, 0, len(docs))
	for _, doc := range docs {
		raw, ok := doc.(string)
		if !ok {
			continue
		}
		g, err := decodeGame([]byte(raw))
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
