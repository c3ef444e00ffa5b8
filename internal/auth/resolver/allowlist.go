package resolver

import (
	"context"
	"errors"
	"strings"

	"face-score/internal/auth"
)

// AllowListResolver admits identities whose username or email appears in
// the list configured for their provider. An empty list admits nobody.
type AllowListResolver struct {
	allowed map[string]map[string]struct{}
}

func NewAllowListResolver(lists map[string][]string) *AllowListResolver {
	allowed := make(map[string]map[string]struct{}, len(lists))
	for provider, names := range lists {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
				set[n] = struct{}{}
			}
		}
		allowed[provider] = set
	}
	return &AllowListResolver{allowed: allowed}
}

func (r *AllowListResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (string, error) {

	if identity == nil {
		return "", errors.New("identity is nil")
	}

	set := r.allowed[identity.Provider]
	for _, candidate := range []string{identity.Username, identity.Email} {
		key := strings.ToLower(strings.TrimSpace(candidate))
		if key == "" {
			continue
		}
		if _, ok := set[key]; ok {
			if identity.Username != "" {
				return identity.Username, nil
			}
			return identity.Email, nil
		}
	}
	return "", ErrNotAllowed
}
