package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"face-score/internal/auth"
	"face-score/internal/auth/credentials"
	"face-score/internal/auth/provider"
	"face-score/internal/auth/resolver"
	"face-score/internal/session"
)

type fakeProvider struct {
	identities map[string]*auth.Identity
	challenge  string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) AuthCodeURL(state, challenge string) string {
	f.challenge = challenge
	return "https://idp.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) ExchangeCode(_ context.Context, code, verifier string) (*auth.Identity, error) {
	if challengeFor(verifier) != f.challenge {
		return nil, errors.New("pkce mismatch")
	}
	id, ok := f.identities[code]
	if !ok {
		return nil, errors.New("bad code")
	}
	return id, nil
}

type testEnv struct {
	router   *gin.Engine
	sessions *session.Manager
	mr       *miniredis.Miniredis
	fake     *fakeProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	admin, err := credentials.NewAdmin("admin", "correct horse", "")
	if err != nil {
		t.Fatalf("NewAdmin: %v", err)
	}
	fake := &fakeProvider{identities: map[string]*auth.Identity{
		"good": {Provider: "fake", ProviderUserID: "1", Username: "octocat"},
		"evil": {Provider: "fake", ProviderUserID: "2", Username: "mallory"},
	}}
	sessions := session.NewManager(session.NewRedisStore(rdb), 7*24*time.Hour)

	h := NewHandler(
		provider.NewRegistry(fake),
		sessions,
		resolver.NewAllowListResolver(map[string][]string{"fake": {"octocat"}}),
		admin,
		session.CookieOptions{Secure: true},
		false,
	)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return &testEnv{router: r, sessions: sessions, mr: mr, fake: fake}
}

func (e *testEnv) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestPasswordLogin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(http.MethodPost, "/api/auth", `{"username":"admin","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", rec.Code)
	}
	if findCookie(rec, session.CookieName) != nil {
		t.Fatalf("no cookie on failed login")
	}

	rec = e.do(http.MethodPost, "/api/auth", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body: expected 400, got %d", rec.Code)
	}

	rec = e.do(http.MethodPost, "/api/auth", `{"username":"admin","password":"correct horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	c := findCookie(rec, session.CookieName)
	if c == nil || !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("bad session cookie: %+v", c)
	}
	if !e.mr.Exists("session:" + c.Value) {
		t.Fatalf("session not persisted")
	}
}

func TestWhoAmIRollsAndLogoutClears(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(http.MethodPost, "/api/auth", `{"username":"admin","password":"correct horse"}`)
	c := findCookie(rec, session.CookieName)
	if c == nil {
		t.Fatalf("login failed: %d", rec.Code)
	}
	before := e.mr.TTL("session:" + c.Value)

	e.sessions.Now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	rec = e.do(http.MethodGet, "/api/auth", "", c)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"admin"`) {
		t.Fatalf("whoami: %d %s", rec.Code, rec.Body.String())
	}
	if findCookie(rec, session.CookieName) == nil {
		t.Fatalf("whoami should re-issue the cookie")
	}
	if e.mr.TTL("session:"+c.Value) <= before {
		t.Fatalf("ttl not extended")
	}

	rec = e.do(http.MethodDelete, "/api/auth", "", c)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	if cleared := findCookie(rec, session.CookieName); cleared == nil || cleared.MaxAge >= 0 {
		t.Fatalf("logout should clear the cookie")
	}

	rec = e.do(http.MethodGet, "/api/auth", "", c)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("whoami after logout: expected 401, got %d", rec.Code)
	}
}

func oauthStart(t *testing.T, e *testEnv) (state string, cookies []*http.Cookie) {
	t.Helper()
	rec := e.do(http.MethodGet, "/api/auth/fake", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("redirect: expected 302, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("location: %v", err)
	}
	st := findCookie(rec, stateCookieName)
	pk := findCookie(rec, pkceCookieName)
	if st == nil || pk == nil {
		t.Fatalf("flow cookies missing")
	}
	return loc.Query().Get("state"), []*http.Cookie{st, pk}
}

func TestOAuthCallbackAllowList(t *testing.T) {
	e := newTestEnv(t)

	state, cookies := oauthStart(t, e)
	rec := e.do(http.MethodGet, "/api/auth/fake/callback?code=evil&state="+url.QueryEscape(state), "", cookies...)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("identity outside allow-list: expected 403, got %d", rec.Code)
	}
	if findCookie(rec, session.CookieName) != nil {
		t.Fatalf("rejected identity must not get a session")
	}

	state, cookies = oauthStart(t, e)
	rec = e.do(http.MethodGet, "/api/auth/fake/callback?code=good&state="+url.QueryEscape(state), "", cookies...)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/images" {
		t.Fatalf("allowed identity: expected redirect to /images, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
	if findCookie(rec, session.CookieName) == nil {
		t.Fatalf("session cookie missing after callback")
	}
}

func TestOAuthCallbackRejectsBadState(t *testing.T) {
	e := newTestEnv(t)
	_, cookies := oauthStart(t, e)
	rec := e.do(http.MethodGet, "/api/auth/fake/callback?code=good&state=forged", "", cookies...)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged state: expected 401, got %d", rec.Code)
	}

	rec = e.do(http.MethodGet, "/api/auth/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown provider: expected 404, got %d", rec.Code)
	}
}
