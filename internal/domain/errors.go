package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindConfiguration  ErrKind = "configuration"  // 500
	KindDatabase       ErrKind = "database"       // 500
	KindSession        ErrKind = "session"        // 500
	KindInternal       ErrKind = "internal"       // 500
	KindExternal       ErrKind = "external"       // 502
	KindInfrastructure ErrKind = "infrastructure" // 503
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code (do not change casually)
// - Message: safe summary for clients (never provider bodies or secrets)
// - Meta: optional details (field, provider, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, "missing_field", "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, "invalid_field", "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

// ErrMissingCode is returned for a callback that carries neither error nor code.
func ErrMissingCode() *Error {
	return New(KindValidation, "missing_code", "Missing authorization code")
}

// ----------------------
// Auth errors (401)
// ----------------------

// ErrAccessDenied is the expected outcome when the user declines consent.
// description comes from the provider's error_description and is safe to show.
func ErrAccessDenied(description string) *Error {
	msg := description
	if msg == "" {
		msg = "access denied"
	}
	return New(KindAuth, "access_denied", msg)
}

func ErrInvalidState() *Error {
	return New(KindAuth, "invalid_oauth_state", "invalid or expired oauth state")
}

func ErrProviderMismatch() *Error {
	return New(KindAuth, "provider_mismatch", "oauth provider mismatch")
}

func ErrTokenExchange(cause error) *Error {
	return Wrap(KindAuth, "token_exchange_failed", "authorization code exchange failed", cause)
}

func ErrNotAuthenticated() *Error {
	return New(KindAuth, "not_authenticated", "not authenticated")
}

// ----------------------
// Forbidden (403)
// ----------------------

func ErrOriginRejected(reason string) *Error {
	return WithMeta(New(KindForbidden, "origin_rejected", "cross-origin request not allowed"), map[string]string{
		"reason": reason,
	})
}

// ----------------------
// Not Found (404)
// ----------------------

func ErrUnknownProvider(name string) *Error {
	return WithMeta(New(KindNotFound, "unknown_provider", "unknown oauth provider"), map[string]string{
		"provider": name,
	})
}

func ErrUserNotFound() *Error {
	return New(KindNotFound, "user_not_found", "user not found")
}

// ----------------------
// Rate limit (429)
// ----------------------

func ErrRateLimited(scope string) *Error {
	return WithMeta(New(KindRateLimited, "rate_limited", "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Configuration (500)
// ----------------------

// ErrProviderNotConfigured is fatal for the provider: it is never served until fixed.
func ErrProviderNotConfigured(provider, field string, cause error) *Error {
	return WithMeta(
		Wrap(KindConfiguration, "provider_not_configured", "oauth provider is not configured", cause),
		map[string]string{"provider": provider, "field": field},
	)
}

// ----------------------
// External services (502)
// ----------------------

func ErrProfileFetch(cause error) *Error {
	return Wrap(KindExternal, "profile_fetch_failed", "could not fetch profile from provider", cause)
}

func ErrProfileParse(cause error) *Error {
	return Wrap(KindExternal, "profile_parse_failed", "provider returned an unreadable profile", cause)
}

// ----------------------
// Persistence / session / internal (5xx)
// ----------------------

func ErrDatabase(cause error) *Error {
	return Wrap(KindDatabase, "db_error", "database error", cause)
}

func ErrSession(cause error) *Error {
	return Wrap(KindSession, "session_error", "session storage error", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "redis_unavailable", "cache unavailable", cause)
}

func ErrRabbitUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, "rabbit_unavailable", "message broker unavailable", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, "random_failed", "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, "internal_error", "internal error", cause)
}
