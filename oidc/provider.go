package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/authprobe/authprobe/oidc/internal/strutils"
)

// Provider drives the authorization-code flow against one authorization
// server: it builds the authorization redirect URL for a State and later
// exchanges the callback's code for tokens. It holds no per-attempt data;
// everything attempt-scoped lives in the State, so one Provider serves any
// number of concurrent logins.
type Provider struct {
	config   *Config
	client   *http.Client
	endpoint oauth2.Endpoint

	// provider is non-nil only when the config names an issuer; it supplies
	// discovered endpoints and the keyset for id_token verification.
	provider *oidc.Provider

	mu sync.Mutex

	// backgroundCtx is the context used by the provider for background
	// activities like refreshing the discovery keyset.
	backgroundCtx       context.Context
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates and initializes a Provider. When the config names an
// issuer this makes an http request to the issuer's discovery endpoint.
//
// See Provider.Done() which must be called to release provider resources.
func NewProvider(c *Config) (*Provider, error) {
	const op = "oidc.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: config is invalid: %w", op, err)
	}
	client, err := c.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Provider{
		config:              c,
		client:              client,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}
	switch {
	case c.Issuer != "":
		provider, err := oidc.NewProvider(oidc.ClientContext(p.backgroundCtx, client), c.Issuer)
		if err != nil {
			p.Done()
			return nil, fmt.Errorf("%s: unable to discover provider endpoints: %w", op, err)
		}
		p.provider = provider
		p.endpoint = provider.Endpoint()
	default:
		p.endpoint = oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.TokenURL,
		}
	}
	return p, nil
}

// Done with the provider's background resources and must be called for
// every Provider created.
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
}

// AuthURL generates the URL a user is redirected to in order to kick off
// the authorization code flow. The URL carries the config's client ID,
// redirect URL and scopes, response_type=code, the State's ID as the state
// parameter, its nonce, and a PKCE challenge when the attempt has a code
// verifier.
func (p *Provider) AuthURL(ctx context.Context, s *State) (string, error) {
	const op = "Provider.AuthURL"
	if s == nil {
		return "", fmt.Errorf("%s: state is nil: %w", op, ErrNilParameter)
	}
	oauth2Config := oauth2.Config{
		ClientID:    p.config.ClientID,
		RedirectURL: p.config.RedirectURL,
		Endpoint:    p.endpoint,
		Scopes:      p.config.Scopes,
	}
	authCodeOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", s.Nonce()),
	}
	if v := s.CodeVerifier(); v != nil {
		authCodeOpts = append(authCodeOpts,
			oauth2.SetAuthURLParam("code_challenge", v.Challenge()),
			oauth2.SetAuthURLParam("code_challenge_method", string(v.Method())),
		)
	}
	return oauth2Config.AuthCodeURL(s.ID(), authCodeOpts...), nil
}

// Exchange trades the callback's authorization code for tokens: one
// form-urlencoded POST to the token endpoint carrying the grant type,
// client credentials, redirect URL and code, plus the attempt's PKCE
// verifier when one exists. There is no retry; a probe should show exactly
// what the server did on the first attempt.
//
// A non-2xx response becomes an *ExchangeError wrapping the upstream status
// and verbatim body. A 2xx response must parse as a JSON token payload.
// When the config asks for it, any id_token in the payload is verified
// against the State's nonce before the Token is returned.
func (p *Provider) Exchange(ctx context.Context, s *State, authorizationCode string) (*Token, error) {
	const op = "Provider.Exchange"
	if s == nil {
		return nil, fmt.Errorf("%s: state is nil: %w", op, ErrNilParameter)
	}
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingCode)
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {p.config.ClientID},
		"client_secret": {string(p.config.ClientSecret)},
		"redirect_uri":  {p.config.RedirectURL},
		"code":          {authorizationCode},
	}
	if v := s.CodeVerifier(); v != nil {
		form.Set("code_verifier", v.Verifier())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create token request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: token endpoint request failed: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read token response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: %w", op, &ExchangeError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}

	t, err := NewToken(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.config.VerifyIDToken {
		if t.IDToken == "" {
			return nil, fmt.Errorf("%s: id_token is missing from the exchange payload: %w", op, ErrIDTokenVerificationFailed)
		}
		if err := p.VerifyIDToken(ctx, t.IDToken, s.Nonce()); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return t, nil
}

// VerifyIDToken verifies the id_token's signature against the issuer's
// published keys and checks its nonce and audiences per the config.
// Requires a config with an issuer.
func (p *Provider) VerifyIDToken(ctx context.Context, idToken string, nonce string) error {
	const op = "Provider.VerifyIDToken"
	if idToken == "" {
		return fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if p.provider == nil {
		return fmt.Errorf("%s: verification requires discovery via an issuer: %w", op, ErrInvalidParameter)
	}
	algs := make([]string, 0, len(p.config.SupportedSigningAlgs))
	for _, a := range p.config.SupportedSigningAlgs {
		algs = append(algs, string(a))
	}
	oidcConfig := &oidc.Config{
		ClientID:             p.config.ClientID,
		SupportedSigningAlgs: algs,
	}
	if len(p.config.Audiences) > 0 {
		// audiences are checked below against the configured list instead
		oidcConfig.SkipClientIDCheck = true
	}
	verifier := p.provider.Verifier(oidcConfig)

	verified, err := verifier.Verify(oidc.ClientContext(ctx, p.client), idToken)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrIDTokenVerificationFailed, err)
	}
	if verified.Nonce != nonce {
		return fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}
	if len(p.config.Audiences) > 0 {
		found := false
		for _, a := range p.config.Audiences {
			if strutils.StrListContains(verified.Audience, a) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: %w", op, ErrInvalidAudience)
		}
	}
	return nil
}
