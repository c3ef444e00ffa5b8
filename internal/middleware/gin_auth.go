package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinRequireAuth adapts the net/http AuthMiddleware to Gin.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false

		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})

		auth.RequireAuth(next).ServeHTTP(c.Writer, c.Request)

		// The middleware answered on its own, stop the Gin chain
		if !passed {
			c.Abort()
		}
	}
}

// Username returns the admin attached by GinRequireAuth.
func Username(c *gin.Context) string {
	name, _ := UsernameFromContext(c.Request.Context())
	return name
}
