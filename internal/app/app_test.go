package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"face-score/internal/config"
	"face-score/internal/db"
	"face-score/internal/records"
	"face-score/internal/redis"
	"face-score/internal/retention"
	"face-score/internal/session"
	"face-score/internal/storage"
)

func TestParseMode(t *testing.T) {
	for _, s := range []string{"api", "worker", "all"} {
		m, err := ParseMode(s)
		if err != nil || string(m) != s {
			t.Fatalf("ParseMode(%q) = %q, %v", s, m, err)
		}
	}
	if _, err := ParseMode("cron"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if !ModeAll.api() || !ModeAll.worker() || ModeAPI.worker() || ModeWorker.api() {
		t.Fatalf("mode predicates are wrong")
	}
}

func testInfra(t *testing.T) *Infra {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb, err := redis.New(mr.Addr(), "", 0)
	if err != nil {
		t.Fatalf("redis.New: %v", err)
	}

	database, err := db.Open(ctx, "sqlite", "file:"+filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}

	objects := storage.NewObjectsFs(afero.NewMemMapFs())
	store := records.NewStore(database)
	sweeper := retention.New(store, objects, 6)
	sweeper.Log = retention.NewRedisReportLog(rdb.Client)

	infra := &Infra{DB: database, Redis: rdb, Objects: objects, Records: store, Sweeper: sweeper}
	t.Cleanup(func() { _ = infra.Close() })
	return infra
}

func TestRouterWiring(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Debug:         true,
		AdminUsername: "admin",
		AdminPassword: "hunter22",
		SessionTTL:    time.Hour,
	}

	router, err := setupHTTP(context.Background(), cfg, testInfra(t), nil)
	if err != nil {
		t.Fatalf("setupHTTP: %v", err)
	}

	do := func(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := do(http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	if w := do(http.MethodGet, "/api/turnstile", ""); w.Code != http.StatusOK {
		t.Fatalf("turnstile config = %d", w.Code)
	}
	if w := do(http.MethodGet, "/api/images", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("images without session = %d, want 401", w.Code)
	}
	if w := do(http.MethodGet, "/api/auth/gitlab", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unconfigured provider = %d, want 404", w.Code)
	}

	w := do(http.MethodPost, "/api/auth", `{"username":"admin","password":"hunter22"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", w.Code, w.Body.String())
	}
	var sid *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			sid = c
		}
	}
	if sid == nil {
		t.Fatalf("login did not set %s", session.CookieName)
	}

	w = do(http.MethodGet, "/api/images", "", sid)
	if w.Code != http.StatusOK {
		t.Fatalf("images with session = %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-RateLimit-Limit") != "60" {
		t.Fatalf("rate limit header = %q", w.Header().Get("X-RateLimit-Limit"))
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id")
	}
}
