package server

import (
	"encoding/json"
	"fmt"

	"github.com/vikinglords/vikinglords-server/internal/game"
)

// gameDocument renders g for clients. The draw order of both decks is hidden
// behind their sizes; the checksum covers the full stored document.
func gameDocument(g *game.Game) (map[string]any, error) {
	sum, err := game.ComputeChecksum(g)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", g.ID, err)
	}

	if state, ok := doc["currentState"].(map[string]any); ok && g.CurrentState != nil {
		delete(state, "omenDeck")
		delete(state, "offeringDeck")
		state["omenDeckSize"] = len(g.CurrentState.OmenDeck)
		state["offeringDeckSize"] = len(g.CurrentState.OfferingDeck)
	}
	doc["checksum"] = sum.Hash
	return doc, nil
}

// gameSummary is the listing entry of a game.
func gameSummary(g *game.Game) map[string]any {
	players := make([]any, len(g.Players))
	for i, p := range g.Players {
		players[i] = map[string]any{"_id": p.ID, "name": p.Name}
	}
	return map[string]any{
		"_id":       g.ID,
		"name":      g.Name,
		"status":    string(g.Status),
		"createdAt": g.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		"players":   players,
	}
}
