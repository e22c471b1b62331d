package oidc

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()
	const (
		testIssuer      = "https://auth.example.com"
		testClientID    = "test-client-id"
		testSecret      = ClientSecret("test-client-secret")
		testRedirectURL = "http://localhost:8080/auth/callback"
	)
	tests := []struct {
		name         string
		issuer       string
		clientID     string
		clientSecret ClientSecret
		redirectURL  string
		opts         []Option
		wantErr      bool
		wantIsErr    error
		wantContains []string
	}{
		{
			name:         "valid-with-issuer",
			issuer:       testIssuer,
			clientID:     testClientID,
			clientSecret: testSecret,
			redirectURL:  testRedirectURL,
		},
		{
			name:         "valid-with-endpoints",
			clientID:     testClientID,
			clientSecret: testSecret,
			redirectURL:  testRedirectURL,
			opts: []Option{
				WithEndpoints("https://auth.example.com/authorize", "https://auth.example.com/oauth/token"),
			},
		},
		{
			name:         "valid-with-options",
			issuer:       testIssuer,
			clientID:     testClientID,
			clientSecret: testSecret,
			redirectURL:  testRedirectURL,
			opts: []Option{
				WithScopes("openid", "profile"),
				WithAudiences("test-aud"),
				WithSigningAlgs(ES256),
				WithStateTTL(1 * time.Minute),
				WithPKCE(),
				WithVerifyIDToken(),
			},
		},
		{
			name:         "missing-client-id",
			issuer:       testIssuer,
			clientSecret: testSecret,
			redirectURL:  testRedirectURL,
			wantErr:      true,
			wantIsErr:    ErrInvalidParameter,
			wantContains: []string{"client id is empty"},
		},
		{
			name:         "missing-everything-reports-everything",
			wantErr:      true,
			wantIsErr:    ErrInvalidParameter,
			wantContains: []string{"client id is empty", "client secret is empty", "redirect URL is empty", "either an issuer or both auth and token URLs"},
		},
		{
			name:         "issuer-and-endpoints-are-exclusive",
			issuer:       testIssuer,
			clientID:     testClientID,
			clientSecret: testSecret,
			redirectURL:  testRedirectURL,
			opts: []Option{
				WithEndpoints("https://auth.example.com/authorize", "https://auth.example.com/oauth/token"),
			},
			wantErr:      true,
			wantIsErr:    ErrInvalidParameter,
			wantContains: []string{"mutually exclusive"},
		},
		{
			name:         "issuer-bad-scheme",
			issuer:       "ldap://auth.example.com",
			clientID:     testClientID,
			clientSecret: testSecret,
			redirectURL:  testRedirectURL,
			wantErr:      true,
			wantIsErr:    ErrInvalidParameter,
			wantContains: []string{"scheme is not http or https"},
		},
		{
			name:         "missing-token-url",
			clientID:     testClientID,
			clientSecret: testSecret,
			redirectURL:  testRedirectURL,
			opts: []Option{
				WithEndpoints("https://auth.example.com/authorize", ""),
			},
			wantErr:      true,
			wantIsErr:    ErrInvalidParameter,
			wantContains: []string{"either an issuer or both auth and token URLs"},
		},
		{
			name:         "unsupported-signing-alg",
			issuer:       testIssuer,
			clientID:     testClientID,
			clientSecret: testSecret,
			redirectURL:  testRedirectURL,
			opts: []Option{
				WithSigningAlgs(Alg("HS256")),
			},
			wantErr:      true,
			wantIsErr:    ErrInvalidParameter,
			wantContains: []string{"unsupported algorithm"},
		},
		{
			name:         "verify-id-token-needs-issuer",
			clientID:     testClientID,
			clientSecret: testSecret,
			redirectURL:  testRedirectURL,
			opts: []Option{
				WithEndpoints("https://auth.example.com/authorize", "https://auth.example.com/oauth/token"),
				WithVerifyIDToken(),
			},
			wantErr:      true,
			wantIsErr:    ErrInvalidParameter,
			wantContains: []string{"requires an issuer"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewConfig(tt.issuer, tt.clientID, tt.clientSecret, tt.redirectURL, tt.opts...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted %q but got %q", tt.wantIsErr, err)
				for _, want := range tt.wantContains {
					assert.Contains(err.Error(), want)
				}
				return
			}
			require.NoError(err)
			require.NotNil(got)
			assert.Equal(tt.clientID, got.ClientID)
		})
	}
}

func TestNewConfig_defaults(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	c, err := NewConfig("https://auth.example.com", "client-id", "client-secret", "http://localhost:8080/auth/callback")
	require.NoError(err)
	assert.Equal(DefaultStateTTL, c.StateTTL)
	assert.Equal([]Alg{RS256}, c.SupportedSigningAlgs)
	assert.False(c.UsePKCE)
	assert.False(c.VerifyIDToken)
}

func TestConfig_HTTPClient(t *testing.T) {
	t.Parallel()
	t.Run("valid-ca", func(t *testing.T) {
		require := require.New(t)
		ca := StartTestProvider(t).CACert()
		c := &Config{ProviderCA: ca}
		client, err := c.HTTPClient()
		require.NoError(err)
		require.NotNil(client)
	})
	t.Run("invalid-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := &Config{ProviderCA: "not a pem"}
		client, err := c.HTTPClient()
		require.Error(err)
		assert.Nil(client)
		assert.Truef(errors.Is(err, ErrInvalidCACert), "wanted %q but got %q", ErrInvalidCACert, err)
	})
}

func TestClientSecret_redaction(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	secret := ClientSecret("very-secret")
	assert.Equal(RedactedClientSecret, secret.String())
	j, err := json.Marshal(secret)
	require.NoError(err)
	assert.NotContains(string(j), "very-secret")
}
