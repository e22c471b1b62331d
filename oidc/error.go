package oidc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
	ErrInvalidCACert    = errors.New("invalid CA certificate")

	// ErrMissingCode indicates the authorization server's response did not
	// include an authorization code.
	ErrMissingCode = errors.New("authorization code is missing")

	// ErrMissingState indicates the state was either absent from the
	// authorization server's response or unknown to the state store.
	ErrMissingState = errors.New("state is missing or unknown")

	// ErrExpiredState indicates the state outlived the store's TTL before
	// the callback arrived.
	ErrExpiredState = errors.New("state is expired")

	// ErrReplayedState indicates the state was already consumed by an
	// earlier callback.
	ErrReplayedState = errors.New("state has already been used")

	// ErrMissingAccessToken indicates the token endpoint's payload did not
	// include an access_token.
	ErrMissingAccessToken = errors.New("access_token is missing")

	ErrIDTokenVerificationFailed  = errors.New("id_token verification failed")
	ErrInvalidNonce               = errors.New("invalid nonce")
	ErrInvalidAudience            = errors.New("invalid audience")
	ErrUnsupportedChallengeMethod = errors.New("unsupported challenge method")
)

// ExchangeError represents a non-2xx response from the token endpoint. The
// upstream status code and the verbatim response body are retained, since
// surfacing the authorization server's own diagnostics is the whole point of
// a configuration probe.
type ExchangeError struct {
	// StatusCode is the HTTP status returned by the token endpoint.
	StatusCode int

	// Body is the verbatim response body, typically a JSON OAuth error
	// document like {"error":"invalid_client"}.
	Body string
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token endpoint returned %d: %s", e.StatusCode, e.Body)
}
