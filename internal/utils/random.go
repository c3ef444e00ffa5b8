package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomString returns n random bytes encoded as unpadded base64url.
// It panics if the system random source fails.
func RandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("utils: crypto/rand failed: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
