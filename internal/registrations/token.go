package registrations

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes gives 256 bits of entropy; the token is a lookup key, not a MAC,
// so unguessability is all that matters.
const tokenBytes = 32

// GenerateToken returns an opaque URL-safe access token from a
// cryptographically secure random source.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
