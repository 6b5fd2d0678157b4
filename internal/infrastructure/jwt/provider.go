package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-api-magiclink/internal/domain"
	"github.com/go-api-magiclink/internal/pkg/secret"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the session token payload: sub, iss, iat, exp.
type Claims struct {
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 session tokens with a server-held secret.
type Provider struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewProvider takes ownership of key. The issuer is the service's public base URL.
func NewProvider(key secret.Value, issuer string) (*Provider, error) {
	if !key.IsSet() {
		return nil, fmt.Errorf("signing key not configured: %w", domain.ErrSigning)
	}
	return &Provider{key: key.Reveal(), issuer: issuer, ttl: domain.SessionTTL, now: time.Now}, nil
}

// Issue mints a token for userID. Timestamps are whole seconds, so
// exp - iat is exactly the session TTL.
func (p *Provider) Issue(userID string) (string, *Claims, error) {
	if len(p.key) == 0 {
		return "", nil, fmt.Errorf("signing key not configured: %w", domain.ErrSigning)
	}
	iat := p.now().UTC().Truncate(time.Second)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(p.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %v: %w", err, domain.ErrSigning)
	}
	return signed, claims, nil
}

// Verify parses tokenStr, checking the signature, algorithm, issuer and expiry.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}
