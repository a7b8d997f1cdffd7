package game

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"go.uber.org/zap"
)

// DefaultReplaySteps caps the documents kept for one game.
const DefaultReplaySteps = 2000

const replayFormat = 1

// Replay is the history of one game: the started board followed by the
// document after every applied action.
type Replay struct {
	GameID    string
	Steps     []*Game
	Truncated bool
}

// Len returns the number of recorded steps.
func (r *Replay) Len() int {
	return len(r.Steps)
}

// At returns step index, 0 being the started board.
func (r *Replay) At(index int) (*Game, error) {
	if index < 0 || index >= len(r.Steps) {
		return nil, unknownReference("replay of game %s has no step %d (%d recorded)", r.GameID, index, len(r.Steps))
	}
	return r.Steps[index], nil
}

type replayHeader struct {
	GameID    string
	Written   time.Time
	Format    int
	Steps     int
	Truncated bool
}

func replayFile(dir, gameID string) string {
	return filepath.Join(dir, gameID+".replay")
}

// writeReplay stores r as gzipped gob under dir, replacing any earlier file
// only once the new one is complete.
func writeReplay(dir string, r *Replay, now time.Time) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create replay dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, r.GameID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create replay file: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	enc := gob.NewEncoder(zw)
	header := replayHeader{
		GameID:    r.GameID,
		Written:   now,
		Format:    replayFormat,
		Steps:     len(r.Steps),
		Truncated: r.Truncated,
	}
	if err := enc.Encode(&header); err != nil {
		tmp.Close()
		return fmt.Errorf("encode replay header: %w", err)
	}
	for i, step := range r.Steps {
		if err := enc.Encode(step); err != nil {
			tmp.Close()
			return fmt.Errorf("encode replay step %d: %w", i, err)
		}
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush replay: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close replay file: %w", err)
	}
	return os.Rename(tmp.Name(), replayFile(dir, r.GameID))
}

func readReplay(dir, gameID string) (*Replay, error) {
	f, err := os.Open(replayFile(dir, gameID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.Newf(apperrors.CodeNotFound, "no replay for game %s", gameID).
			WithMetadata("game_id", gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read replay %s: %w", gameID, err)
	}
	defer zr.Close()

	dec := gob.NewDecoder(zr)
	var header replayHeader
	if err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("decode replay header: %w", err)
	}
	if header.Format != replayFormat {
		return nil, fmt.Errorf("replay %s has unsupported format %d", gameID, header.Format)
	}

	r := &Replay{GameID: header.GameID, Truncated: header.Truncated, Steps: make([]*Game, 0, header.Steps)}
	for i := 0; i < header.Steps; i++ {
		var step Game
		if err := dec.Decode(&step); err != nil {
			return nil, fmt.Errorf("decode replay step %d: %w", i, err)
		}
		r.Steps = append(r.Steps, &step)
	}
	return r, nil
}

type liveReplay struct {
	replay  *Replay
	touched time.Time
}

// ReplayRecorder keeps the replays of games in progress and writes each one
// to disk when its game completes. Replays of games that stop receiving
// actions are dropped by Evict.
type ReplayRecorder struct {
	logger   *zap.Logger
	dir      string
	maxSteps int
	now      func() time.Time

	mu   sync.Mutex
	live map[string]*liveReplay
}

// RecorderOption configures a ReplayRecorder.
type RecorderOption func(*ReplayRecorder)

// WithMaxSteps caps the steps kept per game. Later steps are not recorded and
// the replay is marked truncated.
func WithMaxSteps(n int) RecorderOption {
	return func(rr *ReplayRecorder) {
		if n > 0 {
			rr.maxSteps = n
		}
	}
}

// WithRecorderClock overrides time.Now.
func WithRecorderClock(now func() time.Time) RecorderOption {
	return func(rr *ReplayRecorder) { rr.now = now }
}

// NewReplayRecorder creates a recorder writing finished replays under dir.
func NewReplayRecorder(logger *zap.Logger, dir string, opts ...RecorderOption) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	rr := &ReplayRecorder{
		logger:   logger,
		dir:      dir,
		maxSteps: DefaultReplaySteps,
		now:      time.Now,
		live:     make(map[string]*liveReplay),
	}
	for _, opt := range opts {
		opt(rr)
	}
	return rr
}

// Begin starts a replay at the started board g, replacing any earlier one.
func (rr *ReplayRecorder) Begin(g *Game) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.live[g.ID] = &liveReplay{
		replay:  &Replay{GameID: g.ID, Steps: []*Game{g.Clone()}},
		touched: rr.now(),
	}
	rr.logger.Debug("replay started", zap.String("game_id", g.ID))
}

// Record appends g to its game's replay. Games without a live replay are
// ignored.
func (rr *ReplayRecorder) Record(g *Game) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	l, ok := rr.live[g.ID]
	if !ok {
		return
	}
	l.touched = rr.now()
	if len(l.replay.Steps) >= rr.maxSteps {
		if !l.replay.Truncated {
			l.replay.Truncated = true
			rr.logger.Warn("replay step limit reached",
				zap.String("game_id", g.ID),
				zap.Int("max_steps", rr.maxSteps),
			)
		}
		return
	}
	l.replay.Steps = append(l.replay.Steps, g.Clone())
}

// Finish writes the replay of gameID to disk and drops it from memory.
func (rr *ReplayRecorder) Finish(gameID string) error {
	rr.mu.Lock()
	l, ok := rr.live[gameID]
	delete(rr.live, gameID)
	rr.mu.Unlock()

	if !ok {
		return nil
	}
	if err := writeReplay(rr.dir, l.replay, rr.now()); err != nil {
		return fmt.Errorf("save replay %s: %w", gameID, err)
	}
	rr.logger.Info("replay saved",
		zap.String("game_id", gameID),
		zap.Int("steps", l.replay.Len()),
		zap.String("directory", rr.dir),
	)
	return nil
}

// Evict drops replays that have not recorded a step within idle and returns
// how many were dropped.
func (rr *ReplayRecorder) Evict(idle time.Duration) int {
	cutoff := rr.now().Add(-idle)

	rr.mu.Lock()
	defer rr.mu.Unlock()

	evicted := 0
	for gameID, l := range rr.live {
		if l.touched.Before(cutoff) {
			delete(rr.live, gameID)
			evicted++
			rr.logger.Info("replay evicted",
				zap.String("game_id", gameID),
				zap.Int("steps", l.replay.Len()),
			)
		}
	}
	return evicted
}

// RunEviction calls Evict every interval until ctx is done.
func (rr *ReplayRecorder) RunEviction(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rr.Evict(idle)
		}
	}
}

// Live returns the number of replays held in memory.
func (rr *ReplayRecorder) Live() int {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	return len(rr.live)
}

// Replay returns the replay of gameID: the in-memory one while the game is
// being recorded, otherwise the saved file.
func (rr *ReplayRecorder) Replay(gameID string) (*Replay, error) {
	rr.mu.Lock()
	l, ok := rr.live[gameID]
	if ok {
		snapshot := &Replay{
			GameID:    gameID,
			Steps:     append([]*Game(nil), l.replay.Steps...),
			Truncated: l.replay.Truncated,
		}
		rr.mu.Unlock()
		return snapshot, nil
	}
	rr.mu.Unlock()

	return readReplay(rr.dir, gameID)
}
