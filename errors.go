package multilogin

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	TextCodeInvalidCredentials = "auth_invalid_credentials"
	TextCodeAssertionRejected  = "auth_assertion_rejected"
	TextCodeTokenExpired       = "auth_token_expired"
	TextCodeTokenMalformed     = "auth_token_malformed"
	TextCodeAdminRequired      = "auth_admin_required"
	TextCodeIdentityNotFound   = "directory_identity_not_found"
	TextCodeDuplicateIdentity  = "directory_duplicate_identity"
	TextCodeProviderNoPassword = "directory_provider_no_password"
	TextCodePasswordMismatch   = "directory_password_mismatch"
	TextCodeUpstreamFailure    = "relay_upstream_failure"
)

// ErrInvalidCredentials is returned when no identity matches the supplied
// email and password digest. Unknown email and wrong password are
// indistinguishable on purpose.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAssertionRejected is returned when an external identity assertion fails
// signature, expiry, or audience checks.
var ErrAssertionRejected = errors.New("identity assertion rejected", errors.CategoryAuth).
	WithTextCode(TextCodeAssertionRejected).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a session token is past its expiry.
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned when a session token cannot be parsed or its
// signature does not verify.
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrAdminRequired is returned when the caller's role does not allow an
// administrative operation.
var ErrAdminRequired = errors.New("admin role required", errors.CategoryAuthz).
	WithTextCode(TextCodeAdminRequired).
	WithCode(errors.CodeForbidden)

// ErrIdentityNotFound is returned when a directory lookup matches no user.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrDuplicateIdentity is returned when an insert or update would collide
// with an existing (email, provider) pair.
var ErrDuplicateIdentity = errors.New("identity already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(errors.CodeConflict)

// ErrProviderNoPassword is returned when a password operation targets an
// account whose credential lives with an external provider.
var ErrProviderNoPassword = errors.New("password managed by external provider", errors.CategoryValidation).
	WithTextCode(TextCodeProviderNoPassword).
	WithCode(errors.CodeBadRequest)

// ErrPasswordMismatch is returned when the current password supplied to a
// change request does not digest to the stored hash.
var ErrPasswordMismatch = errors.New("current password does not match", errors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeBadRequest)

// ErrUpstreamFailure is returned when the forwarding relay cannot replicate
// a mutation downstream. The local write is already committed at that point.
var ErrUpstreamFailure = errors.New("upstream directory unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeUpstreamFailure)

// sentinelError returns a mutable copy of a sentinel that still matches it
// through the error chain.
func sentinelError(sentinel *errors.Error) *errors.Error {
	clone := sentinel.Clone()
	if clone == nil {
		return sentinel
	}
	clone.Source = sentinel
	return clone
}

// HTTPStatus maps a service error to the status code controllers respond
// with. Unrecognized errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return router.StatusOK
	case errors.Is(err, ErrUpstreamFailure):
		return router.StatusBadGateway
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAssertionRejected),
		errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrTokenMalformed):
		return router.StatusUnauthorized
	case errors.Is(err, ErrAdminRequired):
		return router.StatusForbidden
	case errors.Is(err, ErrIdentityNotFound):
		return router.StatusNotFound
	case errors.Is(err, ErrDuplicateIdentity):
		return router.StatusConflict
	case errors.Is(err, ErrProviderNoPassword), errors.Is(err, ErrPasswordMismatch):
		return router.StatusBadRequest
	}

	var rich *errors.Error
	if errors.As(err, &rich) {
		switch rich.Category {
		case errors.CategoryValidation, errors.CategoryBadInput:
			return router.StatusBadRequest
		case errors.CategoryAuth:
			return router.StatusUnauthorized
		case errors.CategoryAuthz:
			return router.StatusForbidden
		case errors.CategoryNotFound:
			return router.StatusNotFound
		case errors.CategoryConflict:
			return router.StatusConflict
		}
	}

	if errors.IsNotFound(err) {
		return router.StatusNotFound
	}

	return router.StatusInternalServerError
}
