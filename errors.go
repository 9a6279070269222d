package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API consumers alongside the generic message.
const (
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeDuplicateEmail  = "DUPLICATE_EMAIL"
	TextCodeDuplicateMobile = "DUPLICATE_MOBILE"
	TextCodeUserNotFound    = "USER_NOT_FOUND"
	TextCodeTokenInvalid    = "TOKEN_INVALID"
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeMissingCode     = "MISSING_CODE"
	TextCodeInvalidCode     = "INVALID_CODE"
	TextCodeEmptyPassword   = "EMPTY_PASSWORD"
)

// ErrDuplicateEmail is returned when registration hits an existing email.
// Registration duplicate checks reveal existence by design.
var ErrDuplicateEmail = errors.New("a user with this email already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateEmail)

// ErrDuplicateMobile is returned when registration hits an existing
// mobile number. Checked before the email, matching the original flow.
var ErrDuplicateMobile = errors.New("a user with this mobile number already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateMobile)

// ErrMismatchedHashAndPassword is the single credential failure: callers
// cannot tell a missing account from a wrong password.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned by the verification step for an unknown id.
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidOrExpiredToken covers every reset-token failure: expired by
// time, wrong value, wrong type, signature mismatch, and decode errors.
// Deliberately undifferentiated so callers get no oracle.
var ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrMissingCode is returned when verification is attempted with no code.
var ErrMissingCode = errors.New("verification code is required", errors.CategoryValidation).
	WithTextCode(TextCodeMissingCode)

// ErrInvalidCode is returned when the code matches neither stored OTP.
var ErrInvalidCode = errors.New("invalid verification code", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidCode)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrUserNotActive blocks login for deactivated accounts.
var ErrUserNotActive = errors.New("user account is not active", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is the session-token expiry error.
var ErrTokenExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is the session-token decode error.
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryBadInput)

// richErrorStatus maps an error onto an HTTP status code and a client
// facing message.
func richErrorStatus(err error) (int, string) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return 500, "An unexpected error occurred"
	}

	switch richErr.Category {
	case errors.CategoryConflict:
		return 409, richErr.Message
	case errors.CategoryValidation, errors.CategoryBadInput:
		return 400, richErr.Message
	case errors.CategoryAuth, errors.CategoryAuthz:
		return 401, richErr.Message
	case errors.CategoryNotFound:
		return 404, richErr.Message
	default:
		return 500, "An unexpected error occurred"
	}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
