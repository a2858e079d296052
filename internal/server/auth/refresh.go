package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/cryptox"
	"github.com/snugkisses/authtokens/internal/server/models"
)

// IssueRefreshToken signs a refresh token for subjectID and persists its
// hash. Store failures are returned wrapped in common.ErrStoreUnavailable.
func (s *Service) IssueRefreshToken(ctx context.Context, subjectID string) (string, error) {
	return s.IssueRefreshTokenFor(ctx, Grant{SubjectID: subjectID})
}

// IssueRefreshTokenFor is IssueRefreshToken that also records the role and
// permissions to reissue on rotation.
func (s *Service) IssueRefreshTokenFor(ctx context.Context, g Grant) (string, error) {
	token, rec, err := s.signRefresh(g)
	if err != nil {
		return "", err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		s.audit(ctx, actionIssued, resultFailure, "user_id", g.SubjectID, "error", err)
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	s.rec.TokenIssued("refresh")
	s.audit(ctx, actionIssued, resultSuccess, "user_id", g.SubjectID, "token_id", rec.ID)
	return token, nil
}

// IssueTokenPair issues an access token and a refresh token for g.
func (s *Service) IssueTokenPair(ctx context.Context, g Grant) (*TokenPair, error) {
	role := g.Role
	if role == "" {
		role = s.settings.DefaultRole
		g.Role = role
	}
	access, err := s.IssueAccessToken(g.SubjectID, role, g.Permissions)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshTokenFor(ctx, g)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) signRefresh(g Grant) (string, *models.RefreshToken, error) {
	if g.SubjectID == "" {
		return "", nil, errors.New("subject id is required")
	}

	now := s.now()
	expires := now.Add(s.settings.RefreshTTL)
	claims := RefreshClaims{
		UserID: g.SubjectID,
		Type:   tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.settings.Issuer,
			Audience:  jwt.ClaimStrings{s.settings.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.refreshKID
	signed, err := token.SignedString(s.refreshKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return signed, &models.RefreshToken{
		UserID:      g.SubjectID,
		TokenHash:   cryptox.HashToken(signed),
		Role:        g.Role,
		Permissions: slices.Clone(g.Permissions),
		CreatedAt:   now,
		ExpiresAt:   expires,
	}, nil
}

func (s *Service) verifyRefresh(tokenString string) *RefreshClaims {
	if tokenString == "" {
		return nil
	}
	claims := &RefreshClaims{}
	token, err := s.refreshParser.ParseWithClaims(tokenString, claims, s.keyFunc(&s.refreshKey.PublicKey))
	if err != nil || !token.Valid {
		return nil
	}
	if claims.Type != tokenTypeRefresh || claims.UserID == "" {
		return nil
	}
	return claims
}

// RotateRefreshToken exchanges a valid, active refresh token for a new pair
// and revokes the old one. It returns (nil, nil) when the token is invalid,
// unknown, already revoked or was rotated concurrently by another caller;
// an error is returned only when the store or signing fails.
func (s *Service) RotateRefreshToken(ctx context.Context, oldToken string) (*TokenPair, error) {
	claims := s.verifyRefresh(oldToken)
	if claims == nil {
		s.rotationFailed(ctx, "invalid_token")
		return nil, nil
	}

	row, err := s.repo.FindActiveByHash(ctx, cryptox.HashToken(oldToken))
	if errors.Is(err, common.ErrorNotFound) {
		s.rotationFailed(ctx, "not_active", "user_id", claims.UserID)
		return nil, nil
	}
	if err != nil {
		s.rotationFailed(ctx, "store_error", "user_id", claims.UserID, "error", err)
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	now := s.now()
	if row.UserID != claims.UserID || row.Expired(now) {
		s.rotationFailed(ctx, "mismatch", "user_id", claims.UserID, "token_id", row.ID)
		return nil, nil
	}

	role := row.Role
	if role == "" {
		role = s.settings.DefaultRole
	}
	grant := Grant{SubjectID: row.UserID, Role: role, Permissions: row.Permissions}

	access, err := s.IssueAccessToken(grant.SubjectID, grant.Role, grant.Permissions)
	if err != nil {
		s.rotationFailed(ctx, "sign_error", "user_id", row.UserID, "error", err)
		return nil, err
	}
	refresh, rec, err := s.signRefresh(grant)
	if err != nil {
		s.rotationFailed(ctx, "sign_error", "user_id", row.UserID, "error", err)
		return nil, err
	}

	ok, err := s.repo.Rotate(ctx, row.ID, common.RevokeReasonRotated, now, rec)
	if err != nil {
		s.rotationFailed(ctx, "store_error", "user_id", row.UserID, "error", err)
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !ok {
		s.rotationFailed(ctx, "lost_race", "user_id", row.UserID, "token_id", row.ID)
		return nil, nil
	}

	s.rec.TokenIssued("refresh")
	s.rec.Rotation(rotationRotated)
	s.audit(ctx, actionRotated, resultSuccess, "user_id", row.UserID, "old_token_id", row.ID, "new_token_id", rec.ID)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) rotationFailed(ctx context.Context, reason string, args ...any) {
	s.rec.Rotation(reason)
	s.audit(ctx, actionRefreshFailed, resultFailure, append([]any{"reason", reason}, args...)...)
}

// RevokeRefreshToken deactivates the stored row for token. The token is not
// verified first, so an expired or otherwise unparsable token can still be
// logged out. Store failures are logged and swallowed unless
// StrictRevocation is set.
func (s *Service) RevokeRefreshToken(ctx context.Context, token, reason string) error {
	if token == "" {
		return nil
	}
	if reason == "" {
		reason = common.RevokeReasonLogout
	}

	err := s.revoke(ctx, token, reason)
	if err == nil {
		return nil
	}
	s.audit(ctx, actionRevoked, resultFailure, "reason", reason, "error", err)
	if s.settings.StrictRevocation {
		return err
	}
	s.log.Warn(ctx, "refresh token revocation failed", "error", err)
	return nil
}

func (s *Service) revoke(ctx context.Context, token, reason string) error {
	row, err := s.repo.FindActiveByHash(ctx, cryptox.HashToken(token))
	if errors.Is(err, common.ErrorNotFound) {
		s.audit(ctx, actionRevoked, resultNoop, "reason", reason)
		return nil
	}
	if err != nil {
		return fmt.Errorf("find refresh token: %w", err)
	}

	ok, err := s.repo.Revoke(ctx, row.ID, reason, s.now())
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if ok {
		s.rec.Revoked(1)
		s.audit(ctx, actionRevoked, resultSuccess, "user_id", row.UserID, "token_id", row.ID, "reason", reason)
	} else {
		s.audit(ctx, actionRevoked, resultNoop, "user_id", row.UserID, "token_id", row.ID, "reason", reason)
	}
	return nil
}

// RevokeAllForSubject revokes every active refresh token of subjectID and
// returns how many were revoked.
func (s *Service) RevokeAllForSubject(ctx context.Context, subjectID, reason string) (int64, error) {
	if subjectID == "" {
		return 0, errors.New("subject id is required")
	}
	if reason == "" {
		reason = common.RevokeReasonAdmin
	}

	n, err := s.repo.RevokeAllForSubject(ctx, subjectID, reason, s.now())
	if err != nil {
		s.audit(ctx, actionRevokedAll, resultFailure, "user_id", subjectID, "error", err)
		return n, fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	s.rec.Revoked(n)
	s.audit(ctx, actionRevokedAll, resultSuccess, "user_id", subjectID, "reason", reason, "count", n)
	return n, nil
}

// PurgeExpired deletes stored rows whose expiry has passed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		s.audit(ctx, actionPurged, resultFailure, "error", err)
		return n, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	s.rec.Purged(n)
	s.audit(ctx, actionPurged, resultSuccess, "count", n)
	return n, nil
}

// Stats reports how many stored refresh tokens are in each state.
func (s *Service) Stats(ctx context.Context) (*models.RefreshTokenStats, error) {
	st, err := s.repo.Stats(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("refresh token stats: %w", err)
	}
	return st, nil
}
