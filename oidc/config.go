package oidc

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"

	"github.com/authprobe/authprobe/oidc/internal/strutils"
)

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client
// secret.
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret.
func (s ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret.
func (s ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Alg represents asymmetric signing algorithms.
type Alg string

const (
	RS256 Alg = "RS256"
	RS384 Alg = "RS384"
	RS512 Alg = "RS512"
	ES256 Alg = "ES256"
	ES384 Alg = "ES384"
	ES512 Alg = "ES512"
	PS256 Alg = "PS256"
	PS384 Alg = "PS384"
	PS512 Alg = "PS512"
)

var supportedAlgorithms = map[Alg]bool{
	RS256: true, RS384: true, RS512: true,
	ES256: true, ES384: true, ES512: true,
	PS256: true, PS384: true, PS512: true,
}

// Config is the immutable configuration for a flow Provider. It is built
// once at startup, validated, and then injected; components never reach for
// the environment themselves.
//
// The authorization server may be named either by Issuer, in which case its
// endpoints are found via OIDC discovery, or by explicit AuthURL/TokenURL
// for plain OAuth 2.0 servers without a discovery document. The two forms
// are mutually exclusive.
type Config struct {
	// ClientID is the relying party ID.
	ClientID string

	// ClientSecret is the relying party secret. It is redacted whenever the
	// config is printed or marshaled.
	ClientSecret ClientSecret

	// Issuer is the authorization server's issuer URL for OIDC discovery.
	Issuer string

	// AuthURL and TokenURL are explicit endpoints for servers without
	// discovery. Set both or neither.
	AuthURL  string
	TokenURL string

	// RedirectURL is the registered callback URL; its path is the path the
	// probe serves the callback on.
	RedirectURL string

	// Scopes are the scopes requested of the authorization server.
	Scopes []string

	// Audiences are optional case-sensitive strings checked against an
	// id_token's "aud" claim during verification.
	Audiences []string

	// SupportedSigningAlgs are the id_token signing algorithms accepted
	// during verification. Defaults to RS256.
	SupportedSigningAlgs []Alg

	// ProviderCA is an optional CA cert PEM to trust when calling the
	// authorization server.
	ProviderCA string

	// StateTTL is the maximum age of a state record. Defaults to
	// DefaultStateTTL.
	StateTTL time.Duration

	// UsePKCE adds an RFC 7636 S256 challenge/verifier to every attempt.
	UsePKCE bool

	// VerifyIDToken verifies any id_token in the exchange payload against
	// the issuer's published keys. Requires Issuer.
	VerifyIDToken bool
}

// NewConfig composes and validates a config. The issuer may be empty when
// WithEndpoints supplies explicit endpoints.
// Supported options: WithEndpoints, WithScopes, WithAudiences,
// WithSigningAlgs, WithProviderCA, WithStateTTL, WithPKCE, WithVerifyIDToken.
func NewConfig(issuer string, clientID string, clientSecret ClientSecret, redirectURL string, opt ...Option) (*Config, error) {
	const op = "oidc.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		Issuer:               issuer,
		ClientID:             clientID,
		ClientSecret:         clientSecret,
		RedirectURL:          redirectURL,
		AuthURL:              opts.withAuthURL,
		TokenURL:             opts.withTokenURL,
		Scopes:               opts.withScopes,
		Audiences:            opts.withAudiences,
		SupportedSigningAlgs: opts.withSigningAlgs,
		ProviderCA:           opts.withProviderCA,
		StateTTL:             opts.withStateTTL,
		UsePKCE:              opts.withPKCE,
		VerifyIDToken:        opts.withVerifyIDToken,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid config: %w", op, err)
	}
	return c, nil
}

// Validate the config. Every problem found is reported, not just the first,
// so a misconfigured probe fails at startup with the full list instead of
// producing confusing errors one exchange at a time.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if c.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client secret is empty: %w", op, ErrInvalidParameter))
	}
	if c.RedirectURL == "" {
		result = multierror.Append(result, fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter))
	} else if _, err := url.Parse(c.RedirectURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: redirect URL %q is invalid: %w", op, c.RedirectURL, err))
	}
	switch {
	case c.Issuer != "" && (c.AuthURL != "" || c.TokenURL != ""):
		result = multierror.Append(result, fmt.Errorf("%s: issuer and explicit endpoints are mutually exclusive: %w", op, ErrInvalidParameter))
	case c.Issuer != "":
		result = multierror.Append(result, validateEndpointURL(op, "issuer", c.Issuer))
	case c.AuthURL == "" || c.TokenURL == "":
		result = multierror.Append(result, fmt.Errorf("%s: either an issuer or both auth and token URLs are required: %w", op, ErrInvalidParameter))
	default:
		result = multierror.Append(result,
			validateEndpointURL(op, "auth URL", c.AuthURL),
			validateEndpointURL(op, "token URL", c.TokenURL),
		)
	}
	if c.StateTTL < 0 {
		result = multierror.Append(result, fmt.Errorf("%s: state TTL is negative: %w", op, ErrInvalidParameter))
	}
	if c.VerifyIDToken && c.Issuer == "" {
		result = multierror.Append(result, fmt.Errorf("%s: id_token verification requires an issuer: %w", op, ErrInvalidParameter))
	}
	for _, a := range c.SupportedSigningAlgs {
		if !supportedAlgorithms[a] {
			result = multierror.Append(result, fmt.Errorf("%s: unsupported algorithm %q: %w", op, a, ErrInvalidParameter))
		}
	}
	return result.ErrorOrNil()
}

// validateEndpointURL returns nil when raw parses and uses an http(s)
// scheme.
func validateEndpointURL(op, name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %s %q is invalid: %w", op, name, raw, err)
	}
	if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
		return fmt.Errorf("%s: %s %q scheme is not http or https: %w", op, name, raw, ErrInvalidParameter)
	}
	return nil
}

// HTTPClient creates an http client for the authorization server which
// trusts the config's optional CA PEM, otherwise the installed system CA
// chain.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	tr := cleanhttp.DefaultPooledTransport()
	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}
	return &http.Client{
		Transport: tr,
	}, nil
}

// configOptions is the set of available options for Config functions
type configOptions struct {
	withAuthURL       string
	withTokenURL      string
	withScopes        []string
	withAudiences     []string
	withSigningAlgs   []Alg
	withProviderCA    string
	withStateTTL      time.Duration
	withPKCE          bool
	withVerifyIDToken bool
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{
		withSigningAlgs: []Alg{RS256},
		withStateTTL:    DefaultStateTTL,
	}
}

// getConfigOpts gets the config defaults and applies the opt overrides
// passed in
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithEndpoints names the authorization and token endpoints directly, for
// plain OAuth 2.0 servers that publish no discovery document.
func WithEndpoints(authURL, tokenURL string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAuthURL = authURL
			o.withTokenURL = tokenURL
		}
	}
}

// WithScopes provides an optional list of scopes to request.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithAudiences provides an optional list of audiences for id_token
// verification.
func WithAudiences(auds ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAudiences = auds
		}
	}
}

// WithSigningAlgs provides the id_token signing algorithms accepted during
// verification.
func WithSigningAlgs(algs ...Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSigningAlgs = algs
		}
	}
}

// WithProviderCA provides an optional CA cert PEM to trust when calling the
// authorization server.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithStateTTL overrides DefaultStateTTL for state records.
func WithStateTTL(ttl time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withStateTTL = ttl
		}
	}
}

// WithPKCE enables an RFC 7636 S256 challenge/verifier per attempt.
func WithPKCE() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withPKCE = true
		}
	}
}

// WithVerifyIDToken verifies any id_token returned by the exchange.
func WithVerifyIDToken() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withVerifyIDToken = true
		}
	}
}
