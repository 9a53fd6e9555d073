package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404/NOT_FOUND.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether the identity resolved to a user at all.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limited")

	// ErrMalformedIdentityToken is surfaced when the identity token cannot even
	// yield a key identifier from its header segment.
	ErrMalformedIdentityToken = errors.New("missing key identifier")
	// ErrUnresolvableKey signals that the key identifier stayed unknown after a
	// forced keyset refresh.
	ErrUnresolvableKey = errors.New("unable to resolve identity verification key")
	// ErrIdentityVerification deliberately carries no detail from the underlying
	// crypto library.
	ErrIdentityVerification = errors.New("identity token could not be verified")
	// ErrClaimValidation is the base for post-signature claim failures; callers
	// wrap it with the specific cause (issuer, audience, email, expiry).
	ErrClaimValidation = errors.New("identity claim rejected")

	// ErrInvalidRefreshToken covers not-found and revoked alike, on purpose.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	ErrInactiveAccount     = errors.New("account is inactive")

	// ErrSigningSecretMissing is an operator misconfiguration. It halts startup
	// and must never be retried.
	ErrSigningSecretMissing = errors.New("access token signing secret is not configured")
)
