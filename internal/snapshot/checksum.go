package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/recordstore"
)

// ComputeChecksum returns the hex SHA-256 of the canonical JSON form of collections.
// encoding/json sorts map keys, so logically equal inputs serialize identically.
// Record order within a collection is significant.
func ComputeChecksum(collections map[string][]recordstore.Record) (string, error) {
	data, err := Canonical(collections)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Canonical serializes collections deterministically.
func Canonical(collections map[string][]recordstore.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalize(collections)); err != nil {
		return nil, fmt.Errorf("canonical encoding: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// nil and empty collections hash the same
func normalize(collections map[string][]recordstore.Record) map[string][]recordstore.Record {
	out := make(map[string][]recordstore.Record, len(collections))
	for name, recs := range collections {
		if recs == nil {
			recs = []recordstore.Record{}
		}
		out[name] = recs
	}
	return out
}

// Verify recomputes the checksum of s and compares it with the stamped value.
func Verify(s *Snapshot) (bool, error) {
	sum, err := ComputeChecksum(s.Collections)
	if err != nil {
		return false, err
	}
	return sum == s.Checksum, nil
}
