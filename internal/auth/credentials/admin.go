package credentials

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordLoginOff   = errors.New("password login is not configured")
)

// Admin holds the single administrator login.
type Admin struct {
	username string
	hash     string
}

// NewAdmin prefers passwordHash; a plaintext password is hashed once at
// startup. With neither, password login is disabled.
func NewAdmin(username, password, passwordHash string) (*Admin, error) {
	a := &Admin{username: username, hash: passwordHash}
	if a.hash != "" {
		if _, err := bcrypt.Cost([]byte(a.hash)); err != nil {
			return nil, errors.New("credentials: ADMIN_PASSWORD_HASH is not a bcrypt hash")
		}
		return a, nil
	}
	if password == "" {
		return a, nil
	}
	h, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	a.hash = h
	return a, nil
}

func (a *Admin) Enabled() bool { return a != nil && a.hash != "" }

// Authenticate returns the admin username on success. The bcrypt check
// runs even for a wrong username so timing does not reveal it.
func (a *Admin) Authenticate(username, password string) (string, error) {
	if !a.Enabled() {
		return "", ErrPasswordLoginOff
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passErr := VerifyPassword(a.hash, password)
	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}
	return a.username, nil
}
