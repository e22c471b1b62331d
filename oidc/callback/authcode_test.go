package callback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authprobe/authprobe/oidc"
)

const (
	testClientID    = "test-client-id"
	testSecret      = "test-client-secret"
	testRedirectURL = "http://localhost:8080/auth/callback"
)

func TestAuthCode_construction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tp := oidc.StartTestProvider(t)
	p := testNewProvider(t, tp, testClientID, testSecret, testRedirectURL)
	ms, err := oidc.NewMemoryStore(oidc.DefaultStateTTL, false)
	require.NoError(t, err)
	var out testOutcome
	sFn, eFn := testResponseFns(t, &out)

	tests := []struct {
		name string
		p    *oidc.Provider
		ss   StateStore
		sFn  SuccessResponseFunc
		eFn  ErrorResponseFunc
	}{
		{name: "nil-provider", ss: ms, sFn: sFn, eFn: eFn},
		{name: "nil-store", p: p, sFn: sFn, eFn: eFn},
		{name: "nil-success-fn", p: p, ss: ms, eFn: eFn},
		{name: "nil-error-fn", p: p, ss: ms, sFn: sFn},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			h, err := AuthCode(ctx, tt.p, tt.ss, tt.sFn, tt.eFn)
			require.Error(err)
			assert.Nil(h)
			assert.True(errors.Is(err, oidc.ErrNilParameter))
		})
	}
}

func TestAuthCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	setup := func(t *testing.T) (*oidc.TestProvider, *oidc.MemoryStore, *testOutcome, http.HandlerFunc) {
		t.Helper()
		require := require.New(t)
		tp := oidc.StartTestProvider(t)
		p := testNewProvider(t, tp, testClientID, testSecret, testRedirectURL)
		ms, err := oidc.NewMemoryStore(oidc.DefaultStateTTL, false)
		require.NoError(err)
		out := &testOutcome{}
		sFn, eFn := testResponseFns(t, out)
		h, err := AuthCode(ctx, p, ms, sFn, eFn)
		require.NoError(err)
		return tp, ms, out, h
	}

	callbackReq := func(t *testing.T, params url.Values) *http.Request {
		t.Helper()
		return httptest.NewRequest(http.MethodGet, "/auth/callback?"+params.Encode(), nil)
	}

	t.Run("success", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp, ms, out, h := setup(t)
		tp.SetExpectedAuthCode("test-code")
		s, err := ms.Create(ctx)
		require.NoError(err)

		w := httptest.NewRecorder()
		h(w, callbackReq(t, url.Values{"code": {"test-code"}, "state": {s.ID()}}))

		require.NoError(out.err)
		require.NotNil(out.token)
		assert.Equal(s.ID(), out.state)
		assert.NotEmpty(out.token.AccessToken)
		assert.Contains(w.Body.String(), "access_token")
	})
	t.Run("auth-server-error-passes-through", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, _, out, h := setup(t)

		w := httptest.NewRecorder()
		h(w, callbackReq(t, url.Values{
			"error":             {"access_denied"},
			"error_description": {"User cancelled"},
		}))

		require.NotNil(out.respErr)
		assert.NoError(out.err)
		assert.Equal("access_denied", out.respErr.Error)
		assert.Equal("User cancelled", out.respErr.Description)
		assert.Contains(out.respErr.String(), "User cancelled")
	})
	t.Run("missing-code", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, ms, out, h := setup(t)
		s, err := ms.Create(ctx)
		require.NoError(err)

		w := httptest.NewRecorder()
		h(w, callbackReq(t, url.Values{"state": {s.ID()}}))

		require.Error(out.err)
		assert.True(errors.Is(out.err, oidc.ErrMissingCode))
	})
	t.Run("missing-state", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, _, out, h := setup(t)

		w := httptest.NewRecorder()
		h(w, callbackReq(t, url.Values{"code": {"test-code"}}))

		require.Error(out.err)
		assert.True(errors.Is(out.err, oidc.ErrMissingState))
	})
	t.Run("unknown-state", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, _, out, h := setup(t)

		w := httptest.NewRecorder()
		h(w, callbackReq(t, url.Values{"code": {"test-code"}, "state": {"never-issued"}}))

		require.Error(out.err)
		assert.True(errors.Is(out.err, oidc.ErrMissingState))
	})
	t.Run("replayed-state", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp, ms, out, h := setup(t)
		tp.SetExpectedAuthCode("test-code")
		s, err := ms.Create(ctx)
		require.NoError(err)

		params := url.Values{"code": {"test-code"}, "state": {s.ID()}}
		h(httptest.NewRecorder(), callbackReq(t, params))
		require.NoError(out.err)

		h(httptest.NewRecorder(), callbackReq(t, params))
		require.Error(out.err)
		assert.True(errors.Is(out.err, oidc.ErrReplayedState))
	})
	t.Run("exchange-failure", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		tp, ms, out, h := setup(t)
		tp.SetTokenError(http.StatusUnauthorized, `{"error":"invalid_client"}`)
		s, err := ms.Create(ctx)
		require.NoError(err)

		w := httptest.NewRecorder()
		h(w, callbackReq(t, url.Values{"code": {"test-code"}, "state": {s.ID()}}))

		require.Error(out.err)
		var exchangeErr *oidc.ExchangeError
		require.True(errors.As(out.err, &exchangeErr))
		assert.Equal(http.StatusUnauthorized, exchangeErr.StatusCode)
	})
}
