// Package apierr defines the error categories the HTTP layer exposes and the
// single place that turns them into responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindAuth        Kind = "auth_error"
	KindForbidden   Kind = "forbidden"
	KindRateLimited Kind = "rate_limited"
	KindUpstream    Kind = "upstream_error"
	KindStorage     Kind = "storage_error"
	KindNotFound    Kind = "not_found"
	KindInternal    Kind = "internal"
)

// Error carries a user-facing message and an optional internal cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error.
func E(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func Validation(msg string) *Error { return E(KindValidation, msg, nil) }
func Auth(msg string) *Error       { return E(KindAuth, msg, nil) }
func Forbidden(msg string) *Error  { return E(KindForbidden, msg, nil) }
func NotFound(msg string) *Error   { return E(KindNotFound, msg, nil) }

func Upstream(msg string, cause error) *Error { return E(KindUpstream, msg, cause) }
func Storage(msg string, cause error) *Error  { return E(KindStorage, msg, cause) }

// KindOf reports the category of err; unknown errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Status maps a category to an HTTP status code.
func Status(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusBadGateway
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Write renders err as {success:false, code, error}. The cause text is only
// included when debug is true.
func Write(c *gin.Context, err error, debug bool) {
	var e *Error
	if !errors.As(err, &e) {
		e = E(KindInternal, "internal server error", err)
	}
	body := gin.H{
		"success": false,
		"code":    e.Kind,
		"error":   e.Message,
	}
	if debug && e.Err != nil {
		body["detail"] = e.Err.Error()
	}
	c.AbortWithStatusJSON(Status(e.Kind), body)
}
