package gatehouse

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so HTTP layers and clients can
// branch without string matching messages.
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts    = "TOO_MANY_LOGIN_ATTEMPTS"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenSignature     = "TOKEN_SIGNATURE_INVALID"
	TextCodeAuthRequired       = "AUTHENTICATION_REQUIRED"
	TextCodeStaleIdentity      = "STALE_IDENTITY"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
	TextCodeClaimsMappingError = "CLAIMS_MAPPING_ERROR"
	TextCodeDataParseError     = "DATA_PARSE_ERROR"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeImmutableClaim     = "IMMUTABLE_CLAIM_MUTATION"
)

var (
	// ErrIdentityNotFound signals a lookup miss. Stores return it (or any
	// error satisfying errors.IsNotFound) for absent users; it never leaves
	// the authenticator, which collapses it into ErrMismatchedHashAndPassword.
	ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound)

	// ErrMismatchedHashAndPassword is the single credential failure callers
	// see: unknown identifier and wrong password are indistinguishable.
	ErrMismatchedHashAndPassword = errors.New(
		"the credentials provided are invalid",
		errors.CategoryAuth,
	).WithTextCode(TextCodeInvalidCreds).WithCode(errors.CodeUnauthorized)

	// ErrTooManyLoginAttempts rejects logins while an account is inside its
	// cooldown window.
	ErrTooManyLoginAttempts = errors.New(
		"too many login attempts",
		errors.CategoryRateLimit,
	).WithTextCode(TextCodeTooManyAttempts)

	// ErrTokenExpired, ErrTokenSignature, and ErrTokenMalformed keep token
	// verification failures distinct for callers even though the HTTP boundary
	// collapses all of them into a uniform 401.
	ErrTokenExpired = errors.New(
		"token is expired",
		errors.CategoryAuth,
	).WithTextCode(TextCodeTokenExpired).WithCode(errors.CodeUnauthorized)

	ErrTokenSignature = errors.New(
		"token signature is invalid",
		errors.CategoryAuth,
	).WithTextCode(TextCodeTokenSignature).WithCode(errors.CodeUnauthorized)

	ErrTokenMalformed = errors.New(
		"token is malformed",
		errors.CategoryAuth,
	).WithTextCode(TextCodeTokenMalformed).WithCode(errors.CodeUnauthorized)

	// ErrUnauthenticated is returned when a handler needs an authenticated
	// request but the middleware never marked one.
	ErrUnauthenticated = errors.New(
		"authentication required",
		errors.CategoryAuth,
	).WithTextCode(TextCodeAuthRequired).WithCode(errors.CodeUnauthorized)

	// ErrStaleIdentity is returned when a token verifies but its subject no
	// longer resolves to a user. The bearer is unauthenticated, not a server
	// error: the account was removed after the token was issued.
	ErrStaleIdentity = errors.New(
		"identity no longer exists",
		errors.CategoryAuth,
	).WithTextCode(TextCodeStaleIdentity).WithCode(errors.CodeUnauthorized)

	ErrUnableToFindSession = errors.New(
		"unable to find session",
		errors.CategoryAuth,
	).WithTextCode(TextCodeSessionNotFound)

	ErrUnableToDecodeSession = errors.New(
		"unable to decode session",
		errors.CategoryAuth,
	).WithTextCode(TextCodeSessionDecodeError)

	ErrUnableToMapClaims = errors.New(
		"unable to map claims to session",
		errors.CategoryAuth,
	).WithTextCode(TextCodeClaimsMappingError)

	ErrUnableToParseData = errors.New(
		"unable to parse session data",
		errors.CategoryBadInput,
	).WithTextCode(TextCodeDataParseError)

	ErrNoEmptyString = errors.New(
		"password must not be an empty string",
		errors.CategoryValidation,
	).WithTextCode(TextCodeEmptyPassword)

	ErrImmutableClaimMutation = errors.New(
		"immutable claim mutated",
		errors.CategoryValidation,
	).WithTextCode(TextCodeImmutableClaim)
)

// IsTokenExpiredError reports whether err represents an expired token, either
// as a structured error or as one of the legacy string forms emitted by JWT
// libraries.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}

	var structured *errors.Error
	if errors.As(err, &structured) {
		return structured.TextCode == TextCodeTokenExpired
	}

	return strings.Contains(err.Error(), "token is expired")
}

// IsSignatureError reports whether err represents a signature verification
// failure (tampered token or wrong signing key).
func IsSignatureError(err error) bool {
	if err == nil {
		return false
	}

	var structured *errors.Error
	if errors.As(err, &structured) {
		return structured.TextCode == TextCodeTokenSignature
	}

	return strings.Contains(err.Error(), "signature is invalid")
}

// IsMalformedError reports whether err represents a malformed or missing
// token, either structured or in legacy string form.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}

	var structured *errors.Error
	if errors.As(err, &structured) {
		return structured.TextCode == TextCodeTokenMalformed
	}

	msg := err.Error()
	return strings.Contains(msg, "token is malformed") ||
		strings.Contains(msg, "missing or malformed JWT")
}

// IsStoreFault reports whether err is a backend failure rather than a domain
// outcome. Not-found and auth failures are outcomes; anything in the internal
// category (or uncategorized) is a fault that must surface as a 5xx.
func IsStoreFault(err error) bool {
	if err == nil {
		return false
	}

	var structured *errors.Error
	if errors.As(err, &structured) {
		return structured.Category == errors.CategoryInternal ||
			structured.Category == errors.CategoryOperation
	}

	return !errors.IsNotFound(err)
}
