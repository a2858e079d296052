// Package refreshtokens declares the token store contract for issued
// refresh tokens and its PostgreSQL, Redis and in-memory implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/snugkisses/authtokens/internal/server/models"
)

// Repository stores refresh token records keyed by token hash.
//
// Implementations wrap backend failures with common.ErrStoreUnavailable and
// report absent rows with common.ErrorNotFound.
type Repository interface {
	// Create inserts a new active record. t.ID is assigned when empty.
	Create(ctx context.Context, t *models.RefreshToken) error

	// FindActiveByHash returns the active record whose token hash matches.
	FindActiveByHash(ctx context.Context, hash string) (*models.RefreshToken, error)

	// Revoke marks the record inactive with reason and revocation time.
	// It reports false when the record was already inactive or missing, so
	// two concurrent revocations of the same row cannot both succeed.
	Revoke(ctx context.Context, id, reason string, at time.Time) (bool, error)

	// Rotate revokes oldID and inserts next as one step. It reports false,
	// and inserts nothing, when oldID was no longer active.
	Rotate(ctx context.Context, oldID, reason string, at time.Time, next *models.RefreshToken) (bool, error)

	// RevokeAllForSubject deactivates every active record of userID and
	// returns how many were revoked.
	RevokeAllForSubject(ctx context.Context, userID, reason string, at time.Time) (int64, error)

	// DeleteExpired physically removes records that expired before the
	// given time and returns how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	// Stats counts records by state at now.
	Stats(ctx context.Context, now time.Time) (*models.RefreshTokenStats, error)
}
