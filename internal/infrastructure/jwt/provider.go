package jwtinfra

import (
	"fmt"
	"time"

	"github.com/aeronite/auth-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the JWT payload: a snapshot of the user at issuance time.
// A token stays valid for its whole lifetime even if the user record changes.
type Claims struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs. Access and refresh tokens share the
// same secret and claims shape; only the expiry tells them apart, so callers
// must track which cookie slot holds which kind.
type Provider struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewProvider(secret string, accessTTL, refreshTTL time.Duration) *Provider {
	return &Provider{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueAccessToken mints a short-lived token authorizing API calls.
func (p *Provider) IssueAccessToken(userID, name, email string) (string, error) {
	return p.sign(userID, name, email, p.accessTTL)
}

// IssueRefreshToken mints a longer-lived token used only to obtain new access tokens.
func (p *Provider) IssueRefreshToken(userID, name, email string) (string, error) {
	return p.sign(userID, name, email, p.refreshTTL)
}

func (p *Provider) sign(userID, name, email string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Name:   name,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Verify checks signature and expiry against no persisted state. Every failure
// mode (bad signature, malformed structure, expired) collapses to the same
// ErrUnauthorized so callers cannot distinguish them.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}
