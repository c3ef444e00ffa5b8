package session

import (
	"context"
	"time"
)

// Session is an authenticated admin session. The id is random and never
// derived from user input.
type Session struct {
	SessionID    string    `json:"session_id"`
	Username     string    `json:"username"`
	Provider     string    `json:"provider"` // "password", "github", "oidc"
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store defines how sessions are stored and retrieved.
// Get returns (nil, nil) for unknown ids.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
