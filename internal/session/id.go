package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const idBytes = 32 // 256 bits

var randRead = rand.Read

// GenerateID returns an opaque, URL-safe session token. Possession of the
// token is the only capability required to reach the session.
func GenerateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
