package game

import "context"

// Patch is a partial document update keyed by dotted path, for example
// "currentState" or "currentState.players". Only the named paths are
// overwritten.
type Patch map[string]any

// ListFilter narrows ListGames.
type ListFilter struct {
	Status Status
	UserID string
	Limit  int
}

// Matches reports whether g passes the filter, ignoring Limit.
func (f ListFilter) Matches(g *Game) bool {
	if f.Status != "" && g.Status != f.Status {
		return false
	}
	if f.UserID != "" && !g.HasPlayer(f.UserID) {
		return false
	}
	return true
}

// GameStore persists game documents.
type GameStore interface {
	CreateGame(ctx context.Context, g *Game) error
	LoadGame(ctx context.Context, id string) (*Game, error)
	SaveGame(ctx context.Context, id string, patch Patch) error
	ListGames(ctx context.Context, filter ListFilter) ([]*Game, error)
}

// StatePatch names every path an action can change.
func StatePatch(g *Game) Patch {
	return Patch{
		"status":       g.Status,
		"currentState": g.CurrentState,
		"commands":     g.Commands,
	}
}
