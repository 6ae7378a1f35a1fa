package core

import "errors"

// Rate limiting errors
var (
	// ErrRateLimited means the shared token bucket rejected the request.
	// Surfaced as a generic "slow down" message, never the remaining budget.
	ErrRateLimited = errors.New("slow down, you're going too fast") // 429

	// ErrLoginThrottled means the login throttler's backoff window has not
	// elapsed yet for this identifier.
	ErrLoginThrottled = errors.New("blocked due to repeated failed attempts, come back later") // 429
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid username or password") // 401
	ErrUnauthenticated    = errors.New("authentication required")      // 401
	ErrSessionNotFound    = errors.New("session not found")            // 401
	ErrUserNotFound       = errors.New("user not found")               // 404
)

// Registration conflicts. Usernames are not secret, so these are surfaced
// specifically rather than folded into a generic failure.
var (
	ErrUsernameTaken = errors.New("an account with that username already exists") // 409
	ErrEmailTaken    = errors.New("an account with that email already exists")    // 409
)

// Verification errors
var (
	// ErrVerificationNotFound covers both missing and never-existed requests
	// so responses cannot be used to probe for valid request ids.
	ErrVerificationNotFound = errors.New("verification request not found") // 401
	ErrAlreadyVerified      = errors.New("email is already verified")      // 400
)

// Config errors (server-side configuration)
var (
	ErrDBAdapterRequired = errors.New("database adapter is required") // 500
	ErrRedisRequired     = errors.New("redis client is required")     // 500
	ErrMailerRequired    = errors.New("mailer is required")           // 500
)

// ValidationError reports the first violated constraint of a request input.
// The message is surfaced to the end user verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
