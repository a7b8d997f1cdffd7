package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SerializationChecksum identifies a game document by content. Clients use it
// to detect that the state they render is the state the server holds.
type SerializationChecksum struct {
	Hash    string
	Version int
}

// ComputeChecksum hashes the JSON encoding of g. encoding/json writes map
// keys in sorted order, so equal documents hash equally.
func ComputeChecksum(g *Game) (*SerializationChecksum, error) {
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to encode game: %w", err)
	}
	sum := sha256.Sum256(data)
	return &SerializationChecksum{
		Hash:    hex.EncodeToString(sum[:]),
		Version: 1,
	}, nil
}
