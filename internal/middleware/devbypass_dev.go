//go:build devauth

package middleware

// Built only with -tags devauth for local development.
const (
	devBypass   = true
	devUsername = "dev"
)
