package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vikinglords/vikinglords-server/internal/config"
	"github.com/vikinglords/vikinglords-server/internal/game"
	"go.uber.org/zap"
)

// DB wraps the PostgreSQL connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB connects to PostgreSQL and verifies the connection.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger != nil {
		logger.Info("connected to database",
			zap.String("host", poolCfg.ConnConfig.Host),
			zap.String("database", poolCfg.ConnConfig.Database),
			zap.Int32("max_conns", poolCfg.MaxConns),
		)
	}
	return &DB{Pool: pool, logger: logger}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// Stats returns pool statistics.
func (db *DB) Stats() *pgxpool.Stat {
	return db.Pool.Stat()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	doc        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS games_status_created_idx ON games (status, created_at DESC);
CREATE INDEX IF NOT EXISTS games_players_idx ON games USING GIN ((doc -> 'players') jsonb_path_ops);
`

// Migrate creates the games table and its indexes.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.Pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// PostgresStore keeps each game as a JSONB document.
type PostgresStore struct {
	db *DB
}

// NewPostgresStore creates a store over db. Call db.Migrate first.
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateGame(ctx context.Context, g *game.Game) error {
	doc, err := encodeGame(g)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.Pool.Exec(ctx,
		`INSERT INTO games (id, name, status, created_at, updated_at, doc)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		g.ID, g.Name, string(g.Status), g.CreatedAt.UTC(), now, string(doc),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return alreadyExists(g.ID)
		}
		return fmt.Errorf("insert game %s: %w", g.ID, err)
	}
	return nil
}

func (s *PostgresStore) LoadGame(ctx context.Context, id string) (*game.Game, error) {
	var doc []byte
	err := s.db.Pool.QueryRow(ctx, `SELECT doc FROM games WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	return decodeGame(doc)
}

// SaveGame rewrites only the patched paths with nested jsonb_set calls.
func (s *PostgresStore) SaveGame(ctx context.Context, id string, patch game.Patch) error {
	entries, err := encodePatch(patch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	query, args := postgresUpdate(id, entries, patch)

	tag, err := s.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save game %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// postgresUpdate builds the UPDATE for a patch. $1 is the game ID.
func postgresUpdate(id string, entries []patchEntry, patch game.Patch) (string, []any) {
	args := []any{id}
	expr := "doc"
	for _, e := range entries {
		args = append(args, e.Path, string(e.Value))
		expr = fmt.Sprintf("jsonb_set(%s, $%d::text[], $%d::jsonb, true)", expr, len(args)-1, len(args))
	}

	var b strings.Builder
	b.WriteString("UPDATE games SET doc = ")
	b.WriteString(expr)
	if status, ok := statusOf(patch); ok {
		args = append(args, status)
		fmt.Fprintf(&b, ", status = $%d", len(args))
	}
	b.WriteString(", updated_at = now() WHERE id = $1")
	return b.String(), args
}

func (s *PostgresStore) ListGames(ctx context.Context, filter game.ListFilter) ([]*game.Game, error) {
	var limit any
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := s.db.Pool.Query(ctx,
		`SELECT doc FROM games
		 WHERE ($1::text = '' OR status = $1::text)
		   AND ($2::text = '' OR doc -> 'players' @> jsonb_build_array(jsonb_build_object('_id', $2::text)))
		 ORDER BY created_at DESC, id
		 LIMIT $3`,
		string(filter.Status), filter.UserID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []*game.Game
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g, err := decodeGame(doc)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}
