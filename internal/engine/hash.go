package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Hash returns the hex SHA-256 of v's JSON encoding. Map keys encode in
// sorted order, so equal content always hashes equal.
func Hash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", eris.Wrap(err, "engine: marshal for hash")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
