package oidc

import (
	"encoding/hex"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// idNumBytes is the number of random bytes in a generated ID: 256 bits, so
// that state tokens are unguessable and collisions among live records are
// negligible.
const idNumBytes = 32

// NewID generates an opaque ID suitable for a state token or nonce. The ID
// is hex-encoded and carries 256 bits from a cryptographically secure source.
func NewID() (string, error) {
	const op = "oidc.NewID"
	data, err := uuid.GenerateRandomBytes(idNumBytes)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w", op, err)
	}
	return hex.EncodeToString(data), nil
}
