package auth

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snugkisses/authtokens/internal/cryptox"
	"github.com/snugkisses/authtokens/internal/server/models"
	"github.com/snugkisses/authtokens/internal/server/repositories/refreshtokens"
)

var (
	keysOnce   sync.Once
	accessKey  *rsa.PrivateKey
	refreshKey *rsa.PrivateKey
	otherKey   *rsa.PrivateKey
)

func testKeys(t *testing.T) (access, refresh, other *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		var err error
		for _, k := range []**rsa.PrivateKey{&accessKey, &refreshKey, &otherKey} {
			if *k, err = cryptox.GenerateRSAKey(2048); err != nil {
				panic(err)
			}
		}
	})
	return accessKey, refreshKey, otherKey
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc   *Service
	repo  *refreshtokens.InMemoryRepository
	clock *fakeClock
}

func newFixture(t *testing.T, settings Settings, opts ...Option) *fixture {
	t.Helper()
	access, _, _ := testKeys(t)
	repo := refreshtokens.NewInMemoryRepository()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	svc, err := newService(access, &access.PublicKey, access, repo, settings, opts...)
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, clock: clock}
}

func (f *fixture) rowByHash(t *testing.T, hash string) models.RefreshToken {
	t.Helper()
	for _, r := range f.repo.Rows() {
		if r.TokenHash == hash {
			return r
		}
	}
	t.Fatalf("no row for hash %s", hash)
	return models.RefreshToken{}
}

// flakyRepo lets tests inject store failures on top of an in-memory store.
type flakyRepo struct {
	refreshtokens.Repository
	createErr error
	findErr   error
	revokeErr error
	rotateErr error
	allErr    error
	purgeErr  error
	statsErr  error
}

func (r *flakyRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.Repository.Create(ctx, t)
}

func (r *flakyRepo) FindActiveByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.Repository.FindActiveByHash(ctx, hash)
}

func (r *flakyRepo) Revoke(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	if r.revokeErr != nil {
		return false, r.revokeErr
	}
	return r.Repository.Revoke(ctx, id, reason, at)
}

func (r *flakyRepo) Rotate(ctx context.Context, oldID, reason string, at time.Time, next *models.RefreshToken) (bool, error) {
	if r.rotateErr != nil {
		return false, r.rotateErr
	}
	return r.Repository.Rotate(ctx, oldID, reason, at, next)
}

func (r *flakyRepo) RevokeAllForSubject(ctx context.Context, userID, reason string, at time.Time) (int64, error) {
	if r.allErr != nil {
		return 0, r.allErr
	}
	return r.Repository.RevokeAllForSubject(ctx, userID, reason, at)
}

func (r *flakyRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	if r.purgeErr != nil {
		return 0, r.purgeErr
	}
	return r.Repository.DeleteExpired(ctx, before)
}

func (r *flakyRepo) Stats(ctx context.Context, now time.Time) (*models.RefreshTokenStats, error) {
	if r.statsErr != nil {
		return nil, r.statsErr
	}
	return r.Repository.Stats(ctx, now)
}

func newFlakyFixture(t *testing.T, settings Settings, opts ...Option) (*fixture, *flakyRepo) {
	t.Helper()
	access, _, _ := testKeys(t)
	mem := refreshtokens.NewInMemoryRepository()
	flaky := &flakyRepo{Repository: mem}
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	svc, err := newService(access, &access.PublicKey, access, flaky, settings, opts...)
	require.NoError(t, err)
	return &fixture{svc: svc, repo: mem, clock: clock}, flaky
}

// countingRecorder records Recorder calls.
type countingRecorder struct {
	mu        sync.Mutex
	issued    map[string]int
	rotations map[string]int
	revoked   int64
	purged    int64
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{issued: map[string]int{}, rotations: map[string]int{}}
}

func (c *countingRecorder) TokenIssued(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[kind]++
}

func (c *countingRecorder) Rotation(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotations[result]++
}

func (c *countingRecorder) Revoked(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked += n
}

func (c *countingRecorder) Purged(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purged += n
}
