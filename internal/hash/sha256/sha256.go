// Package sha256 computes the content digests used for change detection.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements watch.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the lowercase hex SHA-256 digest of data. It never fails; the
// error is part of the watch.Hasher contract.
func (h *Hasher) Hash(data []byte) (string, error) {
	return Digest(data), nil
}

// Digest is the pure form of Hash.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
