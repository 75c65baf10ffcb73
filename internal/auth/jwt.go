package auth

import (
	"context"
	"errors"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Principal kinds carried in the "kind" claim.
const (
	KindAdmin    = "admin"
	KindStaff    = "staff"
	KindCustomer = "customer"
)

// Principal represents the authenticated caller from JWT.
// Email is set for customers and identifies the orders they own.
type Principal struct {
	Name  string
	Kind  string
	Email string
}

// IsStaff reports whether the principal may run back-office actions.
func (p *Principal) IsStaff() bool {
	return p != nil && (p.Kind == KindAdmin || p.Kind == KindStaff)
}

// Owns reports whether the principal placed an order made with email.
func (p *Principal) Owns(email string) bool {
	return p != nil && p.Email != "" && strings.EqualFold(strings.TrimSpace(p.Email), strings.TrimSpace(email))
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok
}

// ParseBearer validates an "Authorization: Bearer <jwt>" header value.
func ParseBearer(header, secret string) (*Principal, error) {
	if header == "" {
		return nil, errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("invalid authorization header")
	}
	return parseJWT(strings.TrimSpace(parts[1]), secret)
}

type claims struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// parseJWT validates and extracts claims from a JWT token.
func parseJWT(tokenStr string, secret string) (*Principal, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	tok, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return nil, err
	}
	c, _ := tok.Claims.(*claims)
	if c == nil || c.Name == "" || c.Kind == "" {
		return nil, errors.New("invalid claims")
	}
	return &Principal{Name: c.Name, Kind: strings.ToLower(c.Kind), Email: c.Email}, nil
}

// IssueToken signs a HS256 token for name/kind. Used by ops tooling and tests;
// the service itself never issues tokens.
func IssueToken(secret, name, kind string) (string, error) {
	return IssueTokenFor(secret, Principal{Name: name, Kind: kind})
}

// IssueTokenFor signs a HS256 token carrying every principal claim.
func IssueTokenFor(secret string, p Principal) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is empty")
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{Name: p.Name, Kind: p.Kind, Email: p.Email})
	return tok.SignedString([]byte(secret))
}
