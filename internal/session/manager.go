package session

import (
	"context"
	"errors"
	"time"
)

var ErrNoSession = errors.New("session: not found or expired")

// Manager issues sessions and rolls their expiry forward on every
// validated access.
type Manager struct {
	Store Store
	TTL   time.Duration
	Now   func() time.Time
}

func NewManager(store Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Manager{Store: store, TTL: ttl, Now: time.Now}
}

func (m *Manager) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// Start creates a new session for username.
func (m *Manager) Start(ctx context.Context, username, provider string) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	now := m.now().UTC()
	s := Session{
		SessionID:    id,
		Username:     username,
		Provider:     provider,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(m.TTL),
	}
	if err := m.Store.Create(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate loads the session and extends it by TTL from now. A missing,
// malformed or expired id yields ErrNoSession.
func (m *Manager) Validate(ctx context.Context, id string) (*Session, error) {
	if !ValidID(id) {
		return nil, ErrNoSession
	}
	s, err := m.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNoSession
	}

	now := m.now().UTC()
	if !now.Before(s.ExpiresAt) {
		_ = m.Store.Delete(ctx, id)
		return nil, ErrNoSession
	}

	s.LastActivity = now
	s.ExpiresAt = now.Add(m.TTL)
	if err := m.Store.Update(ctx, *s); err != nil {
		return nil, err
	}
	return s, nil
}

// End deletes the session. Unknown ids are not an error.
func (m *Manager) End(ctx context.Context, id string) error {
	if !ValidID(id) {
		return nil
	}
	return m.Store.Delete(ctx, id)
}
