package oidc

import (
	"fmt"
	"time"
)

// State represents one authorization-code flow attempt for a user. Its ID()
// is the opaque value round-tripped through the authorization server as the
// "state" parameter, binding the callback to the login request that started
// the attempt. A State also carries the attempt's nonce and, when PKCE is
// enabled, the attempt's code verifier, both of which are needed again after
// the callback returns.
//
// A State is single-use: the store marks it used on the first successful
// validation and every later validation of the same ID fails.
type State struct {
	id        string
	nonce     string
	verifier  *CodeVerifier
	createdAt time.Time
	used      bool
}

// newState creates a State for one flow attempt. The createdAt time comes
// from the owning store so its clock governs expiry.
func newState(createdAt time.Time, withPKCE bool) (*State, error) {
	const op = "oidc.newState"
	id, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a state id: %w", op, err)
	}
	nonce, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a state nonce: %w", op, err)
	}
	s := &State{
		id:        id,
		nonce:     nonce,
		createdAt: createdAt,
	}
	if withPKCE {
		v, err := NewCodeVerifier()
		if err != nil {
			return nil, fmt.Errorf("%s: unable to generate a code verifier: %w", op, err)
		}
		s.verifier = v
	}
	return s, nil
}

// ID is the state parameter sent to (and returned by) the authorization
// server.
func (s *State) ID() string { return s.id }

// Nonce is the per-attempt nonce sent as the "nonce" auth parameter.
func (s *State) Nonce() string { return s.nonce }

// CodeVerifier returns the attempt's PKCE verifier, or nil when PKCE is not
// in use.
func (s *State) CodeVerifier() *CodeVerifier { return s.verifier }

// CreatedAt is the time the attempt started; the store's TTL is measured
// from it.
func (s *State) CreatedAt() time.Time { return s.createdAt }

// copy returns a value copy so callers outside the store never share the
// record it owns.
func (s *State) copy() *State {
	cp := *s
	if s.verifier != nil {
		v := *s.verifier
		cp.verifier = &v
	}
	return &cp
}
