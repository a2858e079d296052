package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTypeRefresh = "refresh"

// AccessClaims is the payload of an access token. UserID mirrors the
// registered sub claim for clients that read userId.
type AccessClaims struct {
	UserID      string   `json:"userId"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Type        string   `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// Grant describes who a token pair is issued for.
type Grant struct {
	SubjectID   string
	Role        string
	Permissions []string
}

// TokenPair is the result of a login or a successful rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type claimsKey struct{}

// WithClaims stores verified access claims in ctx.
func WithClaims(ctx context.Context, c *AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (*AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*AccessClaims)
	return c, ok && c != nil
}
