// Package jwt implements issuing and parsing of JWT tokens with custom claim
// fields.
//
// Maker defines the interface for creating and validating tokens carrying the
// user's email and id; MakerImpl is the HS256 implementation backed by a
// secret key and a token TTL.
package jwt

import (
	"time"
)

// Maker describes the interface for generating and parsing JWT tokens.
type Maker interface {
	// GenerateToken issues a token for the given user email and id.
	GenerateToken(email string, userID int) (string, error)
	// ParseToken returns *CustomClaims when the token is valid.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl implements Maker using a secret signing key and a token TTL.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewJWTMaker creates a MakerImpl from the secret key and TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
