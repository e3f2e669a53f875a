// Package wamid generates external message identifiers. A wamid is the
// idempotency key for a message: globally unique with overwhelming
// probability, non-sequential, and recognizable by its fixed prefix.
package wamid

import (
	"crypto/rand"
	"encoding/base64"
)

// Prefix identifies generated ids on the wire.
const Prefix = "wamid."

// New returns a fresh external message id: 32 bytes from a cryptographically
// strong source, base64-encoded, prefixed. Entropy-source failure is treated
// as unrecoverable.
func New() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("wamid: entropy source unavailable: " + err.Error())
	}
	return Prefix + base64.StdEncoding.EncodeToString(buf)
}

// IsWamid reports whether s carries the wamid prefix.
func IsWamid(s string) bool {
	return len(s) > len(Prefix) && s[:len(Prefix)] == Prefix
}
