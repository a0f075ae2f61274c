package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// Hash returns the murmur3 hash of data; it places nodes on the ring.
func Hash(data []byte) uint64 {
	return murmur3.Sum64(data)
}

// TextSha256 is a stable cache key for a comment text.
func TextSha256(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Fingerprint is a fast non-cryptographic hash used to bucket exact-match lookups.
func Fingerprint(s string) uint64 {
	return xxhash.Sum64String(s)
}
