package callback

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authprobe/authprobe/oidc"
)

// testOutcome captures what a callback handler handed to the response funcs.
type testOutcome struct {
	state   string
	token   *oidc.Token
	respErr *AuthenErrorResponse
	err     error
}

// testResponseFns returns success/error response funcs that record the
// callback's outcome and write minimal responses.
func testResponseFns(t *testing.T, out *testOutcome) (SuccessResponseFunc, ErrorResponseFunc) {
	t.Helper()
	sFn := func(state string, tk *oidc.Token, w http.ResponseWriter, req *http.Request) {
		out.state = state
		out.token = tk
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(tk.Raw())
	}
	eFn := func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request) {
		out.state = state
		out.respErr = respErr
		out.err = e
		w.WriteHeader(http.StatusBadRequest)
	}
	return sFn, eFn
}

// testNewProvider creates a Provider wired to the TestProvider, accepting
// its CA and signing alg.
func testNewProvider(t *testing.T, tp *oidc.TestProvider, clientID, clientSecret, redirectURL string) *oidc.Provider {
	t.Helper()
	require := require.New(t)

	tp.SetClientCreds(clientID, clientSecret)
	tp.SetAllowedRedirectURIs(redirectURL)
	_, _, alg := tp.SigningKeys()
	c, err := oidc.NewConfig(
		tp.Addr(),
		clientID,
		oidc.ClientSecret(clientSecret),
		redirectURL,
		oidc.WithProviderCA(tp.CACert()),
		oidc.WithSigningAlgs(alg),
		oidc.WithScopes("openid"),
	)
	require.NoError(err)
	p, err := oidc.NewProvider(c)
	require.NoError(err)
	t.Cleanup(p.Done)
	return p
}
