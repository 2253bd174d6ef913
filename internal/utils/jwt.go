package utils // package utils provides helpers for credential encoding and hashing

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredential is returned by Decode for any token that cannot be
// trusted. The cause is deliberately not exposed.
var ErrInvalidCredential = errors.New("invalid credential")

// TokenCodec turns a session id into a signed credential and back. The
// credential carries nothing but the "sub" claim; validity, IP binding and
// kind all live in the server-side session record.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
}

// NewTokenCodec builds a codec for an HMAC algorithm (HS256, HS384, HS512).
func NewTokenCodec(secret, algorithm string) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("empty signing secret")
	}
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	return &TokenCodec{secret: []byte(secret), method: method}, nil
}

// Encode signs {"sub": sessionID}. There are no time claims, so encoding the
// same id twice yields the same credential.
func (c *TokenCodec) Encode(sessionID string) (string, error) {
	t := jwt.NewWithClaims(c.method, jwt.MapClaims{"sub": sessionID})
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign credential: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and algorithm and returns the session id.
func (c *TokenCodec) Decode(raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidCredential
	}
	tok, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{c.method.Alg()}))
	if err != nil || !tok.Valid {
		return "", ErrInvalidCredential
	}
	sub, err := tok.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidCredential
	}
	return sub, nil
}
