// Package storage keeps submitted images addressed by the SHA-256 of their
// bytes, so identical uploads always land on the same key.
package storage

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

// ContentID is the full lowercase hex SHA-256 of b.
func ContentID(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var contentIDRe = regexp.MustCompile(`^[a-f0-9]{64}$`)

// ValidContentID reports whether id looks like a ContentID.
func ValidContentID(id string) bool {
	return contentIDRe.MatchString(id)
}

func ObjectKey(id string) string { return "images/" + id + ".jpg" }
func ThumbKey(id string) string  { return "thumbs/" + id + ".jpg" }

// StripDataURL removes an optional "data:image/...;base64," prefix.
func StripDataURL(s string) string {
	if strings.HasPrefix(s, "data:") {
		if _, rest, ok := strings.Cut(s, ","); ok {
			return rest
		}
	}
	return s
}

// DecodeBase64Image decodes an image payload, with or without a data URL prefix.
func DecodeBase64Image(s string) ([]byte, error) {
	raw := StripDataURL(strings.TrimSpace(s))
	if raw == "" {
		return nil, errors.New("empty image payload")
	}
	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	return b, nil
}
