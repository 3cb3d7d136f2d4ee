package channel

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenAudience = "flowgrid-status"

// DefaultTokenTTL bounds how long a subscribe token stays valid.
const DefaultTokenTTL = 15 * time.Minute

// TokenIssuer mints and verifies the short-lived tokens subscribers present
// to attach to a run's status topic.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates an issuer with the given HMAC secret.
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Issue mints a token bound to one run's status topic.
func (i *TokenIssuer) Issue(workflowRunID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": Topic(workflowRunID),
		"aud": tokenAudience,
		"iat": now.Unix(),
		"exp": now.Add(i.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign channel token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and confirms it grants the requested run's topic.
func (i *TokenIssuer) Verify(tokenStr, workflowRunID string) error {
	token, err := jwt.Parse(tokenStr,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("parse channel token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("unexpected channel token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub != Topic(workflowRunID) {
		return fmt.Errorf("channel token does not grant this topic")
	}
	return nil
}
