package redis

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// newToken returns 32 random bytes, hex-encoded. Used for both session
// tokens and OAuth state values.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
