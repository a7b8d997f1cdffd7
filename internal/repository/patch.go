package repository

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/vikinglords/vikinglords-server/internal/errors"
	"github.com/vikinglords/vikinglords-server/internal/game"
)

// patchEntry is one path of a patch with its JSON encoded value.
type patchEntry struct {
	Path  []string
	Value json.RawMessage
}

// encodePatch validates and encodes patch. Entries are ordered by path so a
// parent path is written before any path below it.
func encodePatch(patch game.Patch) ([]patchEntry, error) {
	paths := make([]string, 0, len(patch))
	for path := range patch {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	entries := make([]patchEntry, 0, len(paths))
	for _, path := range paths {
		segments, err := splitPath(path)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(patch[path])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", path, err)
		}
		entries = append(entries, patchEntry{Path: segments, Value: raw})
	}
	return entries, nil
}

func splitPath(path string) ([]string, error) {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid patch path %q", path)
		}
		for _, r := range s {
			if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
				return nil, apperrors.Newf(apperrors.CodeInvalidArgument, "invalid patch path %q", path)
			}
		}
	}
	return segments, nil
}

// statusOf returns the patched status, if the patch sets one. Stores that keep
// status in its own column use it to stay in step with the document.
func statusOf(patch game.Patch) (string, bool) {
	v, ok := patch["status"]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case game.Status:
		return string(s), true
	case string:
		return s, true
	}
	return "", false
}

// mergeDocument writes entries into the encoded document doc and returns the
// new encoding. Intermediate objects are created as needed.
func mergeDocument(doc []byte, entries []patchEntry) ([]byte, error) {
	var root map[string]any
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	for _, e := range entries {
		var value any
		if err := json.Unmarshal(e.Value, &value); err != nil {
			return nil, fmt.Errorf("decode patch value: %w", err)
		}
		node := root
		for _, key := range e.Path[:len(e.Path)-1] {
			child, ok := node[key]
			if !ok || child == nil {
				next := make(map[string]any)
				node[key] = next
				node = next
				continue
			}
			next, ok := child.(map[string]any)
			if !ok {
				return nil, apperrors.Newf(apperrors.CodeInvalidArgument,
					"patch path %s crosses a non-object at %q", strings.Join(e.Path, "."), key)
			}
			node = next
		}
		node[e.Path[len(e.Path)-1]] = value
	}
	return json.Marshal(root)
}

func encodeGame(g *game.Game) ([]byte, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	return data, nil
}

func decodeGame(data []byte) (*game.Game, error) {
	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	return &g, nil
}

// sortGames orders newest first, ties broken by ID.
func sortGames(games []*game.Game) {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].CreatedAt.After(games[j].CreatedAt)
		}
		return games[i].ID < games[j].ID
	})
}

func notFound(id string) error {
	return apperrors.Newf(apperrors.CodeNotFound, "game %s not found", id).WithMetadata("game_id", id)
}

func alreadyExists(id string) error {
	return apperrors.Newf(apperrors.CodeAlreadyExists, "game %s already exists", id).WithMetadata("game_id", id)
}
