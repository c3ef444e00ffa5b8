package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
)

const idBytes = 32 // 256 bits

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)

// GenerateID generates a cryptographically secure session ID.
func GenerateID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidID reports whether id has the shape GenerateID produces, so junk
// cookies never reach the store.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
