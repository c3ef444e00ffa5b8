package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"face-score/internal/auth"
	"face-score/internal/logger"
)

const providerName = "github"

const defaultAPIBase = "https://api.github.com"

// Provider implements the GitHub OAuth app flow. GitHub issues no ID
// token, so the identity comes from the /user endpoint.
type Provider struct {
	oauthConfig *oauth2.Config
	apiBase     string
}

func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("github oauth config missing required fields")
	}
	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     oauthgithub.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: defaultAPIBase,
	}, nil
}

// WithEndpoints overrides the OAuth and API endpoints.
func (p *Provider) WithEndpoints(ep oauth2.Endpoint, apiBase string) *Provider {
	p.oauthConfig.Endpoint = ep
	p.apiBase = strings.TrimRight(apiBase, "/")
	return p
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("github token exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("github user fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user fetch failed: status %d", resp.StatusCode)
	}

	var u githubUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("github user decode failed: %w", err)
	}
	if u.ID == 0 || u.Login == "" {
		return nil, errors.New("github user missing id or login")
	}

	logger.Info("github identity fetched", map[string]any{
		"login":         u.Login,
		"email_present": u.Email != "",
	})

	return &auth.Identity{
		Provider:       providerName,
		ProviderUserID: strconv.FormatInt(u.ID, 10),
		Username:       u.Login,
		Email:          u.Email,
	}, nil
}
