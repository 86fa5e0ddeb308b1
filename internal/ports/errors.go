package ports

import (
	"context"
	"errors"
)

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these so callers can
// tell failure reasons apart with errors.Is.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Market data errors
	ErrExchangeUnavailable = errors.New("exchange API is unavailable")
	ErrConnectionFailed    = errors.New("failed to connect to the exchange")
	ErrRateLimited         = errors.New("API rate limit exceeded")
	ErrSymbolNotFound      = errors.New("symbol not found on the exchange")
	ErrMalformedPayload    = errors.New("malformed payload from the exchange")

	// Core errors
	ErrInvalidBucketTable = errors.New("invalid depth bucket table")
)

// Describe returns a short user-readable reason for a failure, suitable for
// showing in the presentation layer instead of the raw error chain.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSymbolNotFound):
		return "symbol not found"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed payload"
	case errors.Is(err, ErrRateLimited):
		return "rate limited by exchange"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, ErrConnectionFailed):
		return "network error"
	case errors.Is(err, ErrExchangeUnavailable):
		return "exchange unavailable"
	case errors.Is(err, ErrContextCanceled), errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid request"
	case errors.Is(err, ErrInvalidBucketTable), errors.Is(err, ErrConfigurationError):
		return "invalid configuration"
	default:
		return "unexpected error"
	}
}
