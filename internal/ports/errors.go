package ports

import "errors"

// Standard adapter-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Quote Provider Errors
	ErrProviderUnavailable  = errors.New("quote provider is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the quote provider")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("quote provider authentication failed (check API key)")
	ErrMalformedQuote       = errors.New("quote provider returned an unusable price")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
	ErrDeleteFailed   = errors.New("database delete failed")
)
