package callback

import (
	"context"

	"github.com/authprobe/authprobe/oidc"
)

// StateStore defines the store a callback handler consumes states from.
// Implementations must be concurrently safe and must guarantee that only one
// of any number of concurrent ValidateAndConsume calls for the same token
// can succeed, since two callback requests can race on one state value (a
// browser retry, or a replay attack).
//
// oidc.MemoryStore satisfies the interface; a shared backing store for a
// multi-instance deployment can be swapped in without touching the handler.
type StateStore interface {
	// ValidateAndConsume marks the state named by token as used and
	// returns it. It must fail with oidc.ErrMissingState for an unknown
	// token, oidc.ErrExpiredState past the TTL, and oidc.ErrReplayedState
	// for a token already consumed.
	ValidateAndConsume(ctx context.Context, token string) (*oidc.State, error)
}
