package auth

// Identity is a normalized external identity returned by an OAuth
// provider. It contains facts only, no decisions.
type Identity struct {
	Provider       string // "github", "oidc"
	ProviderUserID string // provider-scoped unique id
	Username       string // login or preferred_username
	Email          string
	EmailVerified  bool
}
