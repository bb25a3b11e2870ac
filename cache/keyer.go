package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint derives the cache key for a (query, endpoint) pair: the
// SHA-256 hex digest of the pair's canonical JSON encoding. Any byte
// difference in either part, whitespace included, changes the key, which is
// why the query builder's determinism is load-bearing for hit rates.
func Fingerprint(query, endpoint string) string {
	// JSON framing keeps ("a","bc") and ("ab","c") distinct.
	payload, err := json.Marshal([2]string{query, endpoint})
	if err != nil {
		// Marshaling two strings cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
