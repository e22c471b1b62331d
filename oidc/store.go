package oidc

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultStateTTL is the maximum age of a state record. A callback arriving
// more than ten minutes after the login started is rejected as expired.
const DefaultStateTTL = 10 * time.Minute

// MemoryStore is an in-memory state store for a single-process deployment.
// It exclusively owns every record it holds: callers only ever see copies.
// All operations serialize on one mutex, which is what guarantees that
// exactly one concurrent ValidateAndConsume of a given token can succeed.
//
// A multi-instance deployment would swap in a shared backing store; the
// consumers (see callback.StateStore and server.StateStore) are interfaces
// so nothing outside this type depends on the map.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	pkce    bool
	states  map[string]*State
	nowFunc func() time.Time
}

// NewMemoryStore creates a store whose records expire after ttl.
// Supported options: WithNow.
func NewMemoryStore(ttl time.Duration, pkce bool, opt ...Option) (*MemoryStore, error) {
	const op = "oidc.NewMemoryStore"
	if ttl <= 0 {
		return nil, fmt.Errorf("%s: ttl is not greater than zero: %w", op, ErrInvalidParameter)
	}
	opts := getStoreOpts(opt...)
	return &MemoryStore{
		ttl:     ttl,
		pkce:    pkce,
		states:  map[string]*State{},
		nowFunc: opts.withNowFunc,
	}, nil
}

// Create starts a new flow attempt: it generates a record with a fresh
// 256-bit token and stores it unused. As a side effect it sweeps records
// older than the TTL, so abandoned logins don't accumulate.
func (ms *MemoryStore) Create(ctx context.Context) (*State, error) {
	const op = "MemoryStore.Create"
	ms.mu.Lock()
	defer ms.mu.Unlock()
	now := ms.now()
	ms.sweep(now)
	s, err := newState(now, ms.pkce)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ms.states[s.id] = s
	return s.copy(), nil
}

// ValidateAndConsume looks up the token and, when it names a live unused
// record, marks the record used and returns a copy of it. It fails with
// ErrMissingState for an unknown token, ErrExpiredState when the record is
// older than the TTL (used or not), and ErrReplayedState when the record was
// already consumed. The mutex makes the check-and-mark atomic: of any number
// of concurrent calls with the same token, exactly one succeeds.
func (ms *MemoryStore) ValidateAndConsume(ctx context.Context, token string) (*State, error) {
	const op = "MemoryStore.ValidateAndConsume"
	ms.mu.Lock()
	defer ms.mu.Unlock()
	s, ok := ms.states[token]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingState)
	}
	if ms.expired(s, ms.now()) {
		delete(ms.states, token)
		return nil, fmt.Errorf("%s: %w", op, ErrExpiredState)
	}
	if s.used {
		return nil, fmt.Errorf("%s: %w", op, ErrReplayedState)
	}
	s.used = true
	return s.copy(), nil
}

// Len reports the number of records currently held, expired or not.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.states)
}

func (ms *MemoryStore) expired(s *State, now time.Time) bool {
	return now.Sub(s.createdAt) > ms.ttl
}

// sweep removes expired records. Callers must hold ms.mu.
func (ms *MemoryStore) sweep(now time.Time) {
	for id, s := range ms.states {
		if ms.expired(s, now) {
			delete(ms.states, id)
		}
	}
}

func (ms *MemoryStore) now() time.Time {
	if ms.nowFunc != nil {
		return ms.nowFunc()
	}
	return time.Now()
}

// storeOptions is the set of available options for store functions
type storeOptions struct {
	withNowFunc func() time.Time
}

// storeDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func storeDefaults() storeOptions {
	return storeOptions{}
}

// getStoreOpts gets the store defaults and applies the opt overrides passed
// in
func getStoreOpts(opt ...Option) storeOptions {
	opts := storeDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
