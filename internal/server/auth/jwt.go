// Package auth holds the authentication primitives: password hashing, the
// access token codec and bearer resolution for protected requests.
package auth

import (
	"time"

	"github.com/dmitrijs2005/bookmarker/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec signs and verifies HS256 access tokens. The key is copied on
// construction and never changes afterwards, so a codec is safe for
// concurrent use.
type TokenCodec struct {
	key []byte
}

func NewTokenCodec(key []byte) *TokenCodec {
	k := make([]byte, len(key))
	copy(k, key)
	return &TokenCodec{key: k}
}

// Issue returns a token with sub=username and exp=now+ttl, and the expiry
// actually encoded (JWT times have second precision).
func (c *TokenCodec) Issue(username string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: exp,
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp.Time, nil
}

// Verify checks the signature and then that now is strictly before the
// expiry. Every failure, whatever its cause, is common.ErrInvalidToken.
func (c *TokenCodec) Verify(tokenString string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return c.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
