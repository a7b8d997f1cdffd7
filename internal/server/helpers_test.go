package server

import (
	"testing"

	"github.com/vikinglords/vikinglords-server/internal/game"
	"github.com/vikinglords/vikinglords-server/internal/lobby"
	"github.com/vikinglords/vikinglords-server/internal/repository"
	"go.uber.org/zap/zaptest"
)

// fixedOrder never swaps, so seats follow join order.
type fixedOrder struct{}

func (fixedOrder) IntN(n int) int { return n - 1 }

func newTestBackend(t *testing.T) (*game.Engine, *lobby.Manager) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	engine := game.NewEngine(repository.NewMemoryStore(logger), logger,
		game.WithShuffler(fixedOrder{}),
		game.WithReplayRecorder(game.NewReplayRecorder(logger, t.TempDir())),
	)
	return engine, lobby.NewManager(engine, 4, logger)
}
