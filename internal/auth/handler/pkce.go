package handler

import (
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/gin-gonic/gin"

	"face-score/internal/utils"
)

const (
	pkceCookieName = "oauth_pkce"
	pkceTTL        = 5 * time.Minute
)

func challengeFor(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

func (h *Handler) generatePKCE(c *gin.Context) (verifier string, challenge string) {
	verifier = utils.RandomString(32)
	h.setFlowCookie(c, pkceCookieName, verifier, pkceTTL)
	return verifier, challengeFor(verifier)
}

func getPKCEVerifier(c *gin.Context) string {
	cookie, err := c.Request.Cookie(pkceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
