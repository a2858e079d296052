package refreshtokens

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/server/models"
)

// InMemoryRepository keeps records in a map guarded by a mutex. It backs
// the "memory" store setting and the service tests.
type InMemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*models.RefreshToken
	byHash map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]*models.RefreshToken),
		byHash: make(map[string]string),
	}
}

func (r *InMemoryRepository) Create(_ context.Context, t *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createLocked(t)
	return nil
}

func (r *InMemoryRepository) createLocked(t *models.RefreshToken) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.IsActive = true

	row := *t
	row.Permissions = slices.Clone(t.Permissions)
	r.byID[row.ID] = &row
	r.byHash[row.TokenHash] = row.ID
}

func (r *InMemoryRepository) FindActiveByHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byHash[hash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	row := r.byID[id]
	if row == nil || !row.IsActive {
		return nil, common.ErrorNotFound
	}
	out := *row
	out.Permissions = slices.Clone(row.Permissions)
	return &out, nil
}

func (r *InMemoryRepository) Revoke(_ context.Context, id, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revokeLocked(id, reason, at), nil
}

func (r *InMemoryRepository) revokeLocked(id, reason string, at time.Time) bool {
	row, ok := r.byID[id]
	if !ok || !row.IsActive {
		return false
	}
	row.IsActive = false
	row.RevokedReason = reason
	row.RevokedAt = &at
	return true
}

func (r *InMemoryRepository) Rotate(_ context.Context, oldID, reason string, at time.Time, next *models.RefreshToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.revokeLocked(oldID, reason, at) {
		return false, nil
	}
	r.createLocked(next)
	return true, nil
}

func (r *InMemoryRepository) RevokeAllForSubject(_ context.Context, userID, reason string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.byID {
		if row.UserID == userID && r.revokeLocked(id, reason, at) {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.byID {
		if row.ExpiresAt.Before(before) {
			delete(r.byID, id)
			delete(r.byHash, row.TokenHash)
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) Stats(_ context.Context, now time.Time) (*models.RefreshTokenStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &models.RefreshTokenStats{}
	for _, row := range r.byID {
		s.Total++
		switch {
		case !row.IsActive:
			s.Revoked++
		case row.Expired(now):
			s.Expired++
		default:
			s.Active++
		}
	}
	return s, nil
}

// Rows returns a copy of every stored record, active or not.
func (r *InMemoryRepository) Rows() []models.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.RefreshToken, 0, len(r.byID))
	for _, row := range r.byID {
		c := *row
		c.Permissions = slices.Clone(row.Permissions)
		out = append(out, c)
	}
	return out
}
