package resolver

import (
	"context"
	"errors"

	"face-score/internal/auth"
)

// ErrNotAllowed is returned for verified identities that may not sign in.
var ErrNotAllowed = errors.New("identity not allowed")

// Resolver decides which admin username an external identity signs in
// as. It is the only place identity-to-admin decisions live.
type Resolver interface {
	Resolve(
		ctx context.Context,
		identity *auth.Identity,
	) (username string, err error)
}
