package service

import "errors"

var (
	ErrUnauthenticated = errors.New("user must be authenticated")
	ErrValidation      = errors.New("message is required")
	ErrQuotaExceeded   = errors.New("message limit exceeded")
	ErrUpstream        = errors.New("failed to generate response")

	// ErrStorageDegraded wraps store failures that were absorbed rather than returned.
	ErrStorageDegraded = errors.New("storage degraded")
)

// Outcome names the terminal state of a processed message, for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	default:
		return "internal_error"
	}
}
