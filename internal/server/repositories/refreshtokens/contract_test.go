package refreshtokens

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/server/models"
)

// runRepositoryContract exercises the behaviour every Repository backend
// must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mk := func(user, hash string, expires time.Time) *models.RefreshToken {
		return &models.RefreshToken{
			UserID:      user,
			TokenHash:   hash,
			Role:        "caregiver",
			Permissions: []string{"shift_notes:read"},
			CreatedAt:   base,
			ExpiresAt:   expires,
		}
	}

	t.Run("create and find", func(t *testing.T) {
		repo := newRepo(t)
		tok := mk("u1", "h1", base.Add(time.Hour))
		require.NoError(t, repo.Create(ctx, tok))
		assert.NotEmpty(t, tok.ID)
		assert.True(t, tok.IsActive)

		got, err := repo.FindActiveByHash(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, tok.ID, got.ID)
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, "caregiver", got.Role)
		assert.Equal(t, []string{"shift_notes:read"}, got.Permissions)
		assert.True(t, got.ExpiresAt.Equal(tok.ExpiresAt))

		_, err = repo.FindActiveByHash(ctx, "nope")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("revoke is conditional", func(t *testing.T) {
		repo := newRepo(t)
		tok := mk("u1", "h1", base.Add(time.Hour))
		require.NoError(t, repo.Create(ctx, tok))

		ok, err := repo.Revoke(ctx, tok.ID, common.RevokeReasonLogout, base)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.Revoke(ctx, tok.ID, common.RevokeReasonLogout, base)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.FindActiveByHash(ctx, "h1")
		assert.ErrorIs(t, err, common.ErrorNotFound)

		ok, err = repo.Revoke(ctx, "unknown-id", common.RevokeReasonLogout, base)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rotate swaps rows", func(t *testing.T) {
		repo := newRepo(t)
		old := mk("u1", "old", base.Add(time.Hour))
		require.NoError(t, repo.Create(ctx, old))

		next := mk("u1", "new", base.Add(2*time.Hour))
		ok, err := repo.Rotate(ctx, old.ID, common.RevokeReasonRotated, base, next)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotEmpty(t, next.ID)

		_, err = repo.FindActiveByHash(ctx, "old")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		got, err := repo.FindActiveByHash(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, next.ID, got.ID)

		// second rotation of the same old row loses
		again := mk("u1", "newer", base.Add(2*time.Hour))
		ok, err = repo.Rotate(ctx, old.ID, common.RevokeReasonRotated, base, again)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = repo.FindActiveByHash(ctx, "newer")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("concurrent rotate has one winner", func(t *testing.T) {
		repo := newRepo(t)
		old := mk("u1", "old", base.Add(time.Hour))
		require.NoError(t, repo.Create(ctx, old))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				next := mk("u1", "next-"+string(rune('a'+i)), base.Add(time.Hour))
				ok, err := repo.Rotate(ctx, old.ID, common.RevokeReasonRotated, base, next)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()
		assert.EqualValues(t, 1, wins.Load())
	})

	t.Run("revoke all for subject", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Create(ctx, mk("u1", "a", base.Add(time.Hour))))
		require.NoError(t, repo.Create(ctx, mk("u1", "b", base.Add(time.Hour))))
		require.NoError(t, repo.Create(ctx, mk("u2", "c", base.Add(time.Hour))))

		n, err := repo.RevokeAllForSubject(ctx, "u1", common.RevokeReasonAdmin, base)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		_, err = repo.FindActiveByHash(ctx, "c")
		assert.NoError(t, err)

		n, err = repo.RevokeAllForSubject(ctx, "u1", common.RevokeReasonAdmin, base)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("delete expired and stats", func(t *testing.T) {
		repo := newRepo(t)
		expired := mk("u1", "gone", base.Add(-time.Hour))
		live := mk("u1", "live", base.Add(time.Hour))
		revoked := mk("u2", "rev", base.Add(time.Hour))
		for _, tok := range []*models.RefreshToken{expired, live, revoked} {
			require.NoError(t, repo.Create(ctx, tok))
		}
		_, err := repo.Revoke(ctx, revoked.ID, common.RevokeReasonLogout, base)
		require.NoError(t, err)

		s, err := repo.Stats(ctx, base)
		require.NoError(t, err)
		assert.Equal(t, &models.RefreshTokenStats{Total: 3, Active: 1, Revoked: 1, Expired: 1}, s)

		n, err := repo.DeleteExpired(ctx, base)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		s, err = repo.Stats(ctx, base)
		require.NoError(t, err)
		assert.Equal(t, &models.RefreshTokenStats{Total: 2, Active: 1, Revoked: 1}, s)
	})
}
