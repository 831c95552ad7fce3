package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// handleBytes gives 256 bits of entropy per handle
const handleBytes = 32

// NewHandle creates a random, URL safe session handle
func NewHandle() (string, error) {
	b := make([]byte, handleBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("[NewHandle] reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
