// Package shared provides small helpers for random secrets and wiping
// sensitive buffers.
package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns size random bytes encoded as hex, so the result
// is 2*size characters long. It is used for generated service secrets.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites b with zeros. Passphrases read from the terminal
// or the environment are wiped once the key has been parsed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
