package oidc

import (
	"encoding/json"
	"fmt"
)

// Token is the token endpoint's response payload. The parsed fields cover
// what the probe inspects; Raw() keeps the endpoint's exact JSON so the
// result can be rendered back verbatim, which is the most useful thing a
// configuration probe can show.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`

	raw []byte
}

// NewToken parses a token endpoint payload. The payload must be JSON and
// must carry an access_token.
func NewToken(raw []byte) (*Token, error) {
	const op = "oidc.NewToken"
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%s: unable to parse token payload: %w", op, err)
	}
	if t.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingAccessToken)
	}
	t.raw = append([]byte(nil), raw...)
	return &t, nil
}

// Raw is the token endpoint's verbatim JSON response body.
func (t *Token) Raw() []byte { return t.raw }
