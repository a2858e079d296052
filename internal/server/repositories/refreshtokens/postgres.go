package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/dbx"
	"github.com/snugkisses/authtokens/internal/server/models"
)

// errNotActive aborts a rotation transaction when the old row lost the race.
var errNotActive = errors.New("refresh token not active")

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db    dbx.DBTX
	types *pgtype.Map
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, types: pgtype.NewMap()}
}

// Create inserts a new active refresh token row.
func (r *PostgresRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	perms := t.Permissions
	if perms == nil {
		perms = []string{}
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, role, permissions, created_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
	`
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.UserID, t.TokenHash, t.Role, perms, t.CreatedAt, t.ExpiresAt); err != nil {
		return fmt.Errorf("%w: error performing sql request: %v", common.ErrStoreUnavailable, err)
	}
	t.IsActive = true
	return nil
}

// FindActiveByHash returns the active row for the given token hash.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) FindActiveByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, role, permissions, created_at, expires_at, is_active
		FROM refresh_tokens
		WHERE token_hash = $1 AND is_active
	`
	t := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, hash).Scan(
		&t.ID, &t.UserID, &t.TokenHash, &t.Role, r.types.SQLScanner(&t.Permissions),
		&t.CreatedAt, &t.ExpiresAt, &t.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}
	return t, nil
}

// Revoke deactivates the row only if it is still active.
func (r *PostgresRepository) Revoke(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET is_active = FALSE, revoked_reason = $2, revoked_at = $3
		WHERE id = $1 AND is_active
	`
	res, err := r.db.ExecContext(ctx, query, id, reason, at)
	if err != nil {
		return false, fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

// Rotate revokes oldID and inserts next in one transaction when the
// repository is bound to a pool, or inside the caller's transaction otherwise.
func (r *PostgresRepository) Rotate(ctx context.Context, oldID, reason string, at time.Time, next *models.RefreshToken) (bool, error) {
	run := func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewPostgresRepository(tx)
		ok, err := repo.Revoke(ctx, oldID, reason, at)
		if err != nil {
			return err
		}
		if !ok {
			return errNotActive
		}
		return repo.Create(ctx, next)
	}

	var err error
	if conn, ok := r.db.(*sql.DB); ok {
		err = dbx.WithTx(ctx, conn, nil, run)
	} else {
		err = run(ctx, r.db)
	}

	switch {
	case errors.Is(err, errNotActive):
		return false, nil
	case errors.Is(err, common.ErrStoreUnavailable):
		return false, err
	case err != nil:
		return false, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
	return true, nil
}

// RevokeAllForSubject deactivates every active row of userID.
func (r *PostgresRepository) RevokeAllForSubject(ctx context.Context, userID, reason string, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET is_active = FALSE, revoked_reason = $2, revoked_at = $3
		WHERE user_id = $1 AND is_active
	`
	res, err := r.db.ExecContext(ctx, query, userID, reason, at)
	if err != nil {
		return 0, fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}
	return n, nil
}

// DeleteExpired removes rows that expired before the given time.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}
	return n, nil
}

// Stats counts rows by state.
func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (*models.RefreshTokenStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active AND expires_at > $1),
			COUNT(*) FILTER (WHERE NOT is_active),
			COUNT(*) FILTER (WHERE is_active AND expires_at <= $1)
		FROM refresh_tokens
	`
	s := &models.RefreshTokenStats{}
	if err := r.db.QueryRowContext(ctx, query, now).Scan(&s.Total, &s.Active, &s.Revoked, &s.Expired); err != nil {
		return nil, fmt.Errorf("%w: db error: %v", common.ErrStoreUnavailable, err)
	}
	return s, nil
}
