package provider

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownProvider = errors.New("unknown oauth provider")

// Registry holds the configured OAuth providers by name.
type Registry struct {
	providers map[string]OAuthProvider
}

// NewRegistry registers the given providers. Nil entries are skipped so
// unconfigured providers can be passed through.
func NewRegistry(list ...OAuthProvider) *Registry {
	m := make(map[string]OAuthProvider)
	for _, p := range list {
		if p == nil {
			continue
		}
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the provider by name.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names lists the registered providers in order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
