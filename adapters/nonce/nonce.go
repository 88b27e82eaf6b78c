// Package nonce provides single-use challenge nonce stores.
package nonce

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// DefaultTTL bounds how long an unconsumed nonce stays valid.
const DefaultTTL = 5 * time.Minute

// newValue returns a 128-bit crypto-random nonce, hex encoded.
func newValue() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
