package turnstile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"face-score/internal/logger"
)

const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Verifier checks Cloudflare Turnstile tokens. With no secret it is
// disabled and Enabled reports false.
type Verifier struct {
	secret    string
	verifyURL string
	http      *http.Client
}

func New(secret string) *Verifier {
	return &Verifier{
		secret:    secret,
		verifyURL: DefaultVerifyURL,
		http:      &http.Client{Timeout: 5 * time.Second},
	}
}

// WithURL points the verifier at another siteverify endpoint.
func (v *Verifier) WithURL(u string) *Verifier {
	v.verifyURL = u
	return v
}

func (v *Verifier) Enabled() bool { return v != nil && v.secret != "" }

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify reports whether token is valid. Transport failures count as
// invalid.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.http.Do(req)
	if err != nil {
		logger.Warn("turnstile verify request failed", map[string]any{"error": err})
		return false
	}
	defer resp.Body.Close()

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logger.Warn("turnstile verify response unreadable", map[string]any{"error": err})
		return false
	}
	if !out.Success {
		logger.Info("turnstile token rejected", map[string]any{"codes": out.ErrorCodes})
	}
	return out.Success
}

// Token extracts a token from the X-Turnstile-Response header or the
// turnstile_response query parameter. Body tokens are handled by callers.
func Token(r *http.Request) string {
	if t := r.Header.Get("X-Turnstile-Response"); t != "" {
		return t
	}
	return r.URL.Query().Get("turnstile_response")
}

// IsMiniProgram reports whether the request comes from the mini-program
// client, which cannot render the challenge.
func IsMiniProgram(r *http.Request, appType string) bool {
	return strings.EqualFold(appType, "miniprogram") ||
		strings.EqualFold(r.Header.Get("X-App-Type"), "miniprogram")
}
