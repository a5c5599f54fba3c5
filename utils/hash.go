package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CacheKey derives a stable cache key for a piece of text. Used to key
// cached embeddings so equal queries hit the same entry regardless of
// length.
func CacheKey(prefix, text string) string {
	sum := sha256.Sum256([]byte(text))
	return prefix + ":" + hex.EncodeToString(sum[:])
}
