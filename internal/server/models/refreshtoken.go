package models

import "time"

// RefreshToken is one issued refresh token as persisted by the token store.
// TokenHash is the hex SHA-256 of the bearer token; the token itself is
// never stored. Rotation inserts a new row and deactivates the old one, so
// the rows of a subject form an append-only lineage.
type RefreshToken struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"userId"`
	TokenHash     string     `db:"token_hash" json:"tokenHash"`
	Role          string     `db:"role" json:"role,omitempty"`
	Permissions   []string   `db:"permissions" json:"permissions,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	ExpiresAt     time.Time  `db:"expires_at" json:"expiresAt"`
	IsActive      bool       `db:"is_active" json:"isActive"`
	RevokedReason string     `db:"revoked_reason" json:"revokedReason,omitempty"`
	RevokedAt     *time.Time `db:"revoked_at" json:"revokedAt,omitempty"`
}

// Expired reports whether the row is past its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RefreshTokenStats summarises the store for monitoring.
type RefreshTokenStats struct {
	Total   int64 `json:"totalTokens"`
	Active  int64 `json:"activeTokens"`
	Revoked int64 `json:"revokedTokens"`
	Expired int64 `json:"expiredTokens"`
}
