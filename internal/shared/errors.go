package shared

import "errors"

var (
	// ErrNotFound indicates the requested resource does not exist or is
	// outside the acting organization.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness conflict (e.g. SKU already taken).
	ErrDuplicate = errors.New("duplicate entry")
	// ErrForbidden indicates the actor lacks the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalid indicates a request that fails business validation.
	ErrInvalid = errors.New("invalid input")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when the CSRF token is absent.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage returns a message suitable for end users. Known sentinel
// errors keep their text; anything else collapses to a generic message so
// internals never leak through responses.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrInvalid),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrIdempotencyConflict):
		return err.Error()
	default:
		return "something went wrong, please try again"
	}
}
