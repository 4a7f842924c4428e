package message

import (
	"crypto/sha256"
	"encoding/hex"
)

// digestHex returns the full 64-character hex encoding of SHA-256(b).
func digestHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
