package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// IssueAccessToken signs a short-lived access token for subjectID.
func (s *Service) IssueAccessToken(subjectID, role string, permissions []string) (string, error) {
	if subjectID == "" {
		return "", errors.New("subject id is required")
	}
	if permissions == nil {
		permissions = []string{}
	}

	now := s.now()
	claims := AccessClaims{
		UserID:      subjectID,
		Role:        role,
		Permissions: slices.Clone(permissions),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    s.settings.Issuer,
			Audience:  jwt.ClaimStrings{s.settings.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.settings.AccessTTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.accessKID

	signed, err := token.SignedString(s.accessKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	s.rec.TokenIssued("access")
	return signed, nil
}

// VerifyAccessToken returns the claims of a valid access token, or nil when
// the token is malformed, badly signed, expired, issued for another
// audience, or is a refresh token.
func (s *Service) VerifyAccessToken(tokenString string) *AccessClaims {
	if tokenString == "" {
		return nil
	}
	claims := &AccessClaims{}
	token, err := s.accessParser.ParseWithClaims(tokenString, claims, s.keyFunc(s.accessPub))
	if err != nil || !token.Valid {
		return nil
	}
	if claims.Type == tokenTypeRefresh || claims.UserID == "" {
		return nil
	}
	return claims
}

func (s *Service) keyFunc(pub *rsa.PublicKey) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return pub, nil
	}
}
