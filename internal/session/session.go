// Package session provides the JWT-backed session provider and the role gate
// used by the CLI and the terminal browser.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/mesh-intelligence/backoffice/pkg/types"
)

// Issuer is written into every token and checked on parse.
const Issuer = "backoffice"

// Claims are the authorization claims carried by a session token.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Session converts the claims into a types.Session.
func (c *Claims) Session() *types.Session {
	s := &types.Session{UserID: c.Subject, Email: c.Email, Role: c.Role}
	if c.ExpiresAt != 0 {
		s.ExpiresAt = time.Unix(c.ExpiresAt, 0).UTC()
	}
	return s
}

// Issue signs a token for s with HS256. A ttl of zero issues a token that
// does not expire.
func Issue(secret string, s types.Session, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("issue token: %w: empty secret", types.ErrInvalidToken)
	}
	if s.UserID == "" {
		return "", fmt.Errorf("issue token: %w: empty user", types.ErrInvalidToken)
	}
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:   Issuer,
			Subject:  s.UserID,
			IssuedAt: now.Unix(),
		},
		Email: s.Email,
		Role:  s.Role,
	}
	if ttl != 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token against secret and returns its claims.
func Parse(secret, token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidToken, err)
	}
	if claims.Issuer != Issuer {
		return nil, fmt.Errorf("%w: issuer %q", types.ErrInvalidToken, claims.Issuer)
	}
	return claims, nil
}

// TokenProvider implements types.SessionProvider over a single bearer token.
type TokenProvider struct {
	secret string
	token  string
}

var _ types.SessionProvider = (*TokenProvider)(nil)

// NewTokenProvider returns a provider that verifies token with secret.
func NewTokenProvider(secret, token string) *TokenProvider {
	return &TokenProvider{secret: secret, token: token}
}

// CurrentSession returns nil when no token was supplied, and
// types.ErrInvalidToken when the token does not verify or has expired.
func (p *TokenProvider) CurrentSession(ctx context.Context) (*types.Session, error) {
	if p.token == "" {
		return nil, nil
	}
	claims, err := Parse(p.secret, p.token)
	if err != nil {
		return nil, err
	}
	return claims.Session(), nil
}

// Area is a part of the application guarded by a role rule.
type Area string

// Areas. The user area is open to users and admins; the admin area only to
// admins.
const (
	AreaUser  Area = "user"
	AreaAdmin Area = "admin"
)

// Authorize returns the current session when its role may enter area.
func Authorize(ctx context.Context, p types.SessionProvider, area Area) (*types.Session, error) {
	if p == nil {
		return nil, types.ErrUnauthenticated
	}
	s, err := p.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, types.ErrUnauthenticated
	}
	switch s.Role {
	case types.RoleAdmin:
		return s, nil
	case types.RoleUser:
		if area == AreaUser {
			return s, nil
		}
		return nil, fmt.Errorf("%w: %s area requires %s", types.ErrForbidden, area, types.RoleAdmin)
	case "":
		return nil, fmt.Errorf("%w: session has no role", types.ErrForbidden)
	}
	return nil, fmt.Errorf("%w: unknown role %q", types.ErrForbidden, s.Role)
}
