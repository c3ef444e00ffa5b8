package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"face-score/internal/apierr"
	"face-score/internal/logger"
	"face-score/internal/session"
)

// unexported, collision-proof context key
type usernameContextKeyType struct{}

var usernameKey = usernameContextKeyType{}

// UsernameFromContext extracts the authenticated admin from context.
func UsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(usernameKey).(string)
	return name, ok
}

type AuthMiddleware struct {
	Sessions *session.Manager
	Cookie   session.CookieOptions
}

func NewAuthMiddleware(sessions *session.Manager, cookie session.CookieOptions) *AuthMiddleware {
	return &AuthMiddleware{Sessions: sessions, Cookie: cookie}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if devBypass {
			ctx := context.WithValue(r.Context(), usernameKey, devUsername)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// 1. Read session cookie
		cookie, err := r.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			writeError(w, apierr.Auth("login required"))
			return
		}

		// 2. Load, check expiry and roll the session forward
		sess, err := a.Sessions.Validate(r.Context(), cookie.Value)
		if errors.Is(err, session.ErrNoSession) {
			session.ClearCookie(w, a.Cookie)
			writeError(w, apierr.Auth("session expired"))
			return
		}
		if err != nil {
			logger.Error("session lookup failed", map[string]any{"error": err})
			writeError(w, apierr.Storage("session lookup failed", err))
			return
		}

		// 3. Re-issue the cookie with the new expiry
		session.SetCookie(w, sess.SessionID, sess.ExpiresAt, a.Cookie)

		// 4. Attach username to context
		ctx := context.WithValue(r.Context(), usernameKey, sess.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeError renders the same body apierr.Write produces for gin.
func writeError(w http.ResponseWriter, e *apierr.Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(apierr.Status(e.Kind))
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    e.Kind,
		"error":   e.Message,
	})
}
