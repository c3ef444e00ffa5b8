package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"face-score/internal/apierr"
	"face-score/internal/auth/credentials"
	"face-score/internal/auth/provider"
	"face-score/internal/auth/resolver"
	"face-score/internal/logger"
	"face-score/internal/session"
)

// Handler serves /api/auth: password login, logout, whoami and the OAuth
// redirect and callback.
type Handler struct {
	providers *provider.Registry
	sessions  *session.Manager
	resolver  resolver.Resolver
	admin     *credentials.Admin
	cookie    session.CookieOptions
	debug     bool

	// AfterLogin is where a successful OAuth callback lands.
	AfterLogin string
}

func NewHandler(
	registry *provider.Registry,
	sessions *session.Manager,
	resolver resolver.Resolver,
	admin *credentials.Admin,
	cookie session.CookieOptions,
	debug bool,
) *Handler {
	return &Handler{
		providers:  registry,
		sessions:   sessions,
		resolver:   resolver,
		admin:      admin,
		cookie:     cookie,
		debug:      debug,
		AfterLogin: "/images",
	}
}

// RegisterRoutes mounts the auth endpoints on g behind mw.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup, mw ...gin.HandlerFunc) {
	a := g.Group("/auth", mw...)
	a.POST("", h.Login)
	a.DELETE("", h.Logout)
	a.GET("", h.WhoAmI)
	a.GET("/:provider", h.redirect)
	a.GET("/:provider/callback", h.callback)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		apierr.Write(c, apierr.Validation("username and password are required"), h.debug)
		return
	}

	username, err := h.admin.Authenticate(req.Username, req.Password)
	if err != nil {
		logger.Warn("password login rejected", map[string]any{
			"ip":    c.ClientIP(),
			"error": err,
		})
		apierr.Write(c, apierr.Auth("invalid username or password"), h.debug)
		return
	}

	sess, err := h.sessions.Start(c.Request.Context(), username, "password")
	if err != nil {
		apierr.Write(c, apierr.Storage("failed to create session", err), h.debug)
		return
	}
	session.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt, h.cookie)

	logger.Info("login succeeded", map[string]any{
		"username": username,
		"provider": "password",
		"ip":       c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"username":   sess.Username,
		"expires_at": sess.ExpiresAt,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	// 1. Read session cookie (same pattern as auth middleware)
	if cookie, err := c.Request.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		// 2. Delete session from store (best-effort)
		if err := h.sessions.End(c.Request.Context(), cookie.Value); err != nil {
			logger.Warn("logout: session delete failed", map[string]any{"error": err})
		}
	}

	// 3. Clear cookie
	session.ClearCookie(c.Writer, h.cookie)

	// 4. Idempotent response
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// WhoAmI validates the session cookie and rolls its expiry forward.
func (h *Handler) WhoAmI(c *gin.Context) {
	cookie, err := c.Request.Cookie(session.CookieName)
	if err != nil || cookie.Value == "" {
		apierr.Write(c, apierr.Auth("not logged in"), h.debug)
		return
	}

	sess, err := h.sessions.Validate(c.Request.Context(), cookie.Value)
	if errors.Is(err, session.ErrNoSession) {
		session.ClearCookie(c.Writer, h.cookie)
		apierr.Write(c, apierr.Auth("session expired"), h.debug)
		return
	}
	if err != nil {
		apierr.Write(c, apierr.Storage("session lookup failed", err), h.debug)
		return
	}
	session.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt, h.cookie)

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"authenticated": true,
		"username":      sess.Username,
		"provider":      sess.Provider,
		"expires_at":    sess.ExpiresAt,
	})
}

func (h *Handler) redirect(c *gin.Context) {
	p, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		apierr.Write(c, apierr.NotFound("unknown oauth provider"), h.debug)
		return
	}

	state := h.generateState(c)
	_, codeChallenge := h.generatePKCE(c)

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, codeChallenge))
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		apierr.Write(c, apierr.NotFound("unknown oauth provider"), h.debug)
		return
	}

	if !validateState(c) {
		apierr.Write(c, apierr.Auth("invalid oauth state"), h.debug)
		return
	}

	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oauth callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		apierr.Write(c, apierr.Auth("authorization was denied"), h.debug)
		return
	}

	code := c.Query("code")
	if code == "" {
		apierr.Write(c, apierr.Validation("missing authorization code"), h.debug)
		return
	}

	codeVerifier := getPKCEVerifier(c)
	if codeVerifier == "" {
		apierr.Write(c, apierr.Auth("missing pkce verifier"), h.debug)
		return
	}

	// The flow cookies are single-use.
	h.setFlowCookie(c, stateCookieName, "", -1)
	h.setFlowCookie(c, pkceCookieName, "", -1)

	identity, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		logger.Warn("oauth exchange failed", map[string]any{
			"provider": providerName,
			"error":    err,
		})
		apierr.Write(c, apierr.E(apierr.KindAuth, "authentication failed", err), h.debug)
		return
	}

	username, err := h.resolver.Resolve(c.Request.Context(), identity)
	if errors.Is(err, resolver.ErrNotAllowed) {
		logger.Warn("oauth identity not allowed", map[string]any{
			"provider": providerName,
			"username": identity.Username,
		})
		apierr.Write(c, apierr.Forbidden("this account is not allowed to sign in"), h.debug)
		return
	}
	if err != nil {
		apierr.Write(c, apierr.E(apierr.KindInternal, "failed to resolve identity", err), h.debug)
		return
	}

	sess, err := h.sessions.Start(c.Request.Context(), username, providerName)
	if err != nil {
		apierr.Write(c, apierr.Storage("failed to create session", err), h.debug)
		return
	}
	session.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt, h.cookie)

	logger.Info("login succeeded", map[string]any{
		"username": username,
		"provider": providerName,
		"ip":       c.ClientIP(),
	})

	c.Redirect(http.StatusFound, h.AfterLogin)
}
