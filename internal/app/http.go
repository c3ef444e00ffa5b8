package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"face-score/internal/api"
	"face-score/internal/auth/credentials"
	"face-score/internal/auth/handler"
	"face-score/internal/auth/provider"
	"face-score/internal/auth/provider/github"
	"face-score/internal/auth/provider/oidc"
	"face-score/internal/auth/resolver"
	"face-score/internal/commentary"
	"face-score/internal/config"
	"face-score/internal/faceapi"
	"face-score/internal/logger"
	"face-score/internal/middleware"
	"face-score/internal/ratelimit"
	"face-score/internal/session"
	"face-score/internal/turnstile"
)

func setupHTTP(ctx context.Context, cfg config.Config, infra *Infra, queue api.Enqueuer) (*gin.Engine, error) {

	// ----------------------------
	// Auth
	// ----------------------------

	sessions := session.NewManager(session.NewRedisStore(infra.Redis.Client), cfg.SessionTTL)
	cookie := session.CookieOptions{Secure: cfg.CookieSecure}

	var providers []provider.OAuthProvider
	if cfg.GitHubClientID != "" {
		gh, err := github.New(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURL)
		if err != nil {
			return nil, err
		}
		providers = append(providers, gh)
	}
	if cfg.OIDCIssuer != "" {
		op, err := oidc.New(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		if err != nil {
			return nil, err
		}
		providers = append(providers, op)
	}
	registry := provider.NewRegistry(providers...)

	admin, err := credentials.NewAdmin(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		return nil, err
	}
	if !admin.Enabled() {
		logger.Warn("password login disabled: no admin password configured", nil)
	}

	allow := resolver.NewAllowListResolver(map[string][]string{
		"github": cfg.GitHubAllowedUsers,
		"oidc":   cfg.OIDCAllowedUsers,
	})

	authHandler := handler.NewHandler(registry, sessions, allow, admin, cookie, cfg.Debug)
	authMiddleware := middleware.NewAuthMiddleware(sessions, cookie)

	logger.Info("auth configured", map[string]any{
		"providers":      registry.Names(),
		"password_login": admin.Enabled(),
	})

	// ----------------------------
	// Services
	// ----------------------------

	limiter := ratelimit.New(ratelimit.NewRedisCounter(infra.Redis.Client))
	limit := func(route string) gin.HandlerFunc {
		p := cfg.Policy(route)
		return middleware.RateLimit(limiter, route, ratelimit.Policy{Limit: p.Limit, Window: p.Window})
	}

	server := &api.Server{
		Faces:            faceapi.New(cfg.FacePPKey, cfg.FacePPSecret, cfg.FacePPURL, 15*time.Second),
		Comments:         commentary.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModelID, 20*time.Second),
		Turnstile:        turnstile.New(cfg.TurnstileSecretKey),
		Objects:          infra.Objects,
		Records:          infra.Records,
		Sweeper:          infra.Sweeper,
		Queue:            queue,
		TurnstileSiteKey: cfg.TurnstileSiteKey,
		Debug:            cfg.Debug,
	}

	// ----------------------------
	// Router
	// ----------------------------

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLog())

	router.GET("/health", api.Health)

	apiGroup := router.Group("/api")
	authHandler.RegisterRoutes(apiGroup, limit(config.RouteAuth))
	server.RegisterRoutes(apiGroup, api.Routes{
		Limit: limit,
		Auth:  middleware.GinRequireAuth(authMiddleware),
	})

	return router, nil
}
