package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vikinglords/vikinglords-server/internal/game"
	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS games_status_created_idx ON games (status, created_at DESC);
`

// SQLiteStore keeps each game as a JSON document in a single-file database.
type SQLiteStore struct {
	sqlDB  *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens or creates the database at path and applies the schema.
func OpenSQLite(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if logger != nil {
		logger.Info("opened sqlite store", zap.String("path", cleanPath))
	}
	return &SQLiteStore{sqlDB: sqlDB, logger: logger}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) CreateGame(ctx context.Context, g *game.Game) error {
	doc, err := encodeGame(g)
	if err != nil {
		return err
	}
	now := time.Now().UTC().UnixMilli()
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO games (id, name, status, created_at, updated_at, doc) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, string(g.Status), g.CreatedAt.UTC().UnixMilli(), now, string(doc),
	)
	if err != nil {
		if isConstraintError(err) {
			return alreadyExists(g.ID)
		}
		return fmt.Errorf("insert game %s: %w", g.ID, err)
	}
	return nil
}

func (s *SQLiteStore) LoadGame(ctx context.Context, id string) (*game.Game, error) {
	var doc string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT doc FROM games WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	return decodeGame([]byte(doc))
}

// SaveGame rewrites only the patched paths with one json_set call.
func (s *SQLiteStore) SaveGame(ctx context.Context, id string, patch game.Patch) error {
	entries, err := encodePatch(patch)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	query, args := sqliteUpdate(id, entries, patch, time.Now().UTC().UnixMilli())

	res, err := s.sqlDB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save game %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save game %s: %w", id, err)
	}
	if n == 0 {
		return notFound(id)
	}
	return nil
}

func sqliteUpdate(id string, entries []patchEntry, patch game.Patch, now int64) (string, []any) {
	var b strings.Builder
	args := make([]any, 0, 2*len(entries)+3)
	b.WriteString("UPDATE games SET doc = json_set(doc")
	for _, e := range entries {
		b.WriteString(", ?, json(?)")
		args = append(args, "$."+strings.Join(e.Path, "."), string(e.Value))
	}
	b.WriteString(")")
	if status, ok := statusOf(patch); ok {
		b.WriteString(", status = ?")
		args = append(args, status)
	}
	b.WriteString(", updated_at = ? WHERE id = ?")
	args = append(args, now, id)
	return b.String(), args
}

func (s *SQLiteStore) ListGames(ctx context.Context, filter game.ListFilter) ([]*game.Game, error) {
	limit := -1
	if filter.Limit > 0 {
		limit = filter.Limit
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT doc FROM games
		 WHERE (? = '' OR status = ?)
		   AND (? = '' OR EXISTS (
		     SELECT 1 FROM json_each(games.doc, '$.players') AS p
		     WHERE json_extract(p.value, '$._id') = ?))
		 ORDER BY created_at DESC, id
		 LIMIT ?`,
		string(filter.Status), string(filter.Status), filter.UserID, filter.UserID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []*game.Game
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		g, err := decodeGame([]byte(doc))
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

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
