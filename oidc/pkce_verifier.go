package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

const (
	// S256 is the SHA-256 based PKCE challenge method.  The probe never
	// offers the "plain" method.
	S256 ChallengeMethod = "S256"
)

// verifierLen is the length of a generated code verifier. RFC 7636 requires
// 43 to 128 characters.
const verifierLen = 43

// verifierCharset holds the unreserved characters RFC 7636 allows in a code
// verifier.
const verifierCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// CodeVerifier represents an RFC 7636 PKCE code verifier and its matching
// S256 challenge. The challenge travels with the authorization request and
// the verifier is proved at token exchange.
type CodeVerifier struct {
	verifier  string
	method    ChallengeMethod
	challenge string
}

// NewCodeVerifier creates a verifier with 43 characters of secure random
// data and its S256 challenge.
func NewCodeVerifier() (*CodeVerifier, error) {
	const op = "oidc.NewCodeVerifier"
	data, err := uuid.GenerateRandomBytes(verifierLen)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create verifier data: %w", op, err)
	}
	buf := make([]byte, verifierLen)
	for i, b := range data {
		buf[i] = verifierCharset[int(b)%len(verifierCharset)]
	}
	v := &CodeVerifier{
		verifier: string(buf),
		method:   S256,
	}
	challenge, err := CreateCodeChallenge(S256, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	v.challenge = challenge
	return v, nil
}

func (v *CodeVerifier) Verifier() string        { return v.verifier }
func (v *CodeVerifier) Method() ChallengeMethod { return v.method }
func (v *CodeVerifier) Challenge() string       { return v.challenge }

// CreateCodeChallenge derives the code challenge for the verifier using the
// given method. Only S256 is supported.
func CreateCodeChallenge(m ChallengeMethod, v *CodeVerifier) (string, error) {
	const op = "oidc.CreateCodeChallenge"
	if v == nil {
		return "", fmt.Errorf("%s: code verifier is nil: %w", op, ErrNilParameter)
	}
	if m != S256 {
		return "", fmt.Errorf("%s: %q: %w", op, m, ErrUnsupportedChallengeMethod)
	}
	sum := sha256.Sum256([]byte(v.verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
