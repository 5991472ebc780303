package testutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns a fake content address for data: "Qm" followed by the
// first 16 bytes of its SHA-256 in hex. Identical bytes give identical hashes.
func ContentHash(data []byte) string {
	h := sha256.Sum256(data)
	return "Qm" + hex.EncodeToString(h[:16])
}
