package refreshtokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/server/models"
)

// Key layout:
//
//	refresh_token:{hash}            hash with the record fields
//	refresh_token_id:{id}           string -> token hash
//	user_refresh_tokens:{user_id}   set of token hashes
//	refresh_tokens:by_expiry        sorted set of token hashes scored by expiry (unix ms)
const (
	redisTokenPrefix   = "refresh_token:"
	redisIDPrefix      = "refresh_token_id:"
	redisUserSetPrefix = "user_refresh_tokens:"
	redisExpiryIndex   = "refresh_tokens:by_expiry"

	redisWatchRetries = 3
)

// RedisRepository implements Repository on Redis. Conditional revocation
// uses WATCH/MULTI so that only one caller can deactivate a given row.
type RedisRepository struct {
	client redis.UniversalClient
}

func NewRedisRepository(client redis.UniversalClient) *RedisRepository {
	return &RedisRepository{client: client}
}

func tokenKey(hash string) string   { return redisTokenPrefix + hash }
func idKey(id string) string        { return redisIDPrefix + id }
func userSetKey(user string) string { return redisUserSetPrefix + user }

func storeErr(err error) error {
	return fmt.Errorf("%w: redis: %v", common.ErrStoreUnavailable, err)
}

func (r *RedisRepository) Create(ctx context.Context, t *models.RefreshToken) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.IsActive = true

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return queueCreate(ctx, pipe, t)
	})
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func queueCreate(ctx context.Context, pipe redis.Pipeliner, t *models.RefreshToken) error {
	perms, err := json.Marshal(t.Permissions)
	if err != nil {
		return err
	}
	pipe.HSet(ctx, tokenKey(t.TokenHash), map[string]any{
		"id":          t.ID,
		"user_id":     t.UserID,
		"role":        t.Role,
		"permissions": string(perms),
		"created_at":  t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"expires_at":  t.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"is_active":   "1",
	})
	pipe.Set(ctx, idKey(t.ID), t.TokenHash, 0)
	pipe.SAdd(ctx, userSetKey(t.UserID), t.TokenHash)
	pipe.ZAdd(ctx, redisExpiryIndex, redis.Z{Score: float64(t.ExpiresAt.UnixMilli()), Member: t.TokenHash})
	return nil
}

func (r *RedisRepository) FindActiveByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	fields, err := r.client.HGetAll(ctx, tokenKey(hash)).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	if len(fields) == 0 || fields["is_active"] != "1" {
		return nil, common.ErrorNotFound
	}
	return decodeRedisToken(hash, fields)
}

func decodeRedisToken(hash string, f map[string]string) (*models.RefreshToken, error) {
	t := &models.RefreshToken{
		ID:            f["id"],
		UserID:        f["user_id"],
		TokenHash:     hash,
		Role:          f["role"],
		IsActive:      f["is_active"] == "1",
		RevokedReason: f["revoked_reason"],
	}
	if p := f["permissions"]; p != "" && p != "null" {
		if err := json.Unmarshal([]byte(p), &t.Permissions); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
	}
	var err error
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, f["created_at"]); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if t.ExpiresAt, err = time.Parse(time.RFC3339Nano, f["expires_at"]); err != nil {
		return nil, fmt.Errorf("decode expires_at: %w", err)
	}
	if v := f["revoked_at"]; v != "" {
		at, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("decode revoked_at: %w", err)
		}
		t.RevokedAt = &at
	}
	return t, nil
}

func queueRevoke(ctx context.Context, pipe redis.Pipeliner, hash, reason string, at time.Time) {
	pipe.HSet(ctx, tokenKey(hash), map[string]any{
		"is_active":      "0",
		"revoked_reason": reason,
		"revoked_at":     at.UTC().Format(time.RFC3339Nano),
	})
}

// casRevoke deactivates the row stored under hash if it is still active,
// optionally queueing more commands into the same MULTI block.
func (r *RedisRepository) casRevoke(ctx context.Context, hash, reason string, at time.Time, extra func(redis.Pipeliner) error) (bool, error) {
	key := tokenKey(hash)
	revoked := false

	txf := func(tx *redis.Tx) error {
		active, err := tx.HGet(ctx, key, "is_active").Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		if active != "1" {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			queueRevoke(ctx, pipe, hash, reason, at)
			if extra != nil {
				return extra(pipe)
			}
			return nil
		})
		if err == nil {
			revoked = true
		}
		return err
	}

	for i := 0; i < redisWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return revoked, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return false, storeErr(err)
	}
	// Someone else kept winning the race for this row.
	return false, nil
}

func (r *RedisRepository) hashForID(ctx context.Context, id string) (string, error) {
	hash, err := r.client.Get(ctx, idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", common.ErrorNotFound
	}
	if err != nil {
		return "", storeErr(err)
	}
	return hash, nil
}

func (r *RedisRepository) Revoke(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	hash, err := r.hashForID(ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.casRevoke(ctx, hash, reason, at, nil)
}

func (r *RedisRepository) Rotate(ctx context.Context, oldID, reason string, at time.Time, next *models.RefreshToken) (bool, error) {
	hash, err := r.hashForID(ctx, oldID)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	ok, err := r.casRevoke(ctx, hash, reason, at, func(pipe redis.Pipeliner) error {
		return queueCreate(ctx, pipe, next)
	})
	if ok {
		next.IsActive = true
	}
	return ok, err
}

func (r *RedisRepository) RevokeAllForSubject(ctx context.Context, userID, reason string, at time.Time) (int64, error) {
	hashes, err := r.client.SMembers(ctx, userSetKey(userID)).Result()
	if err != nil {
		return 0, storeErr(err)
	}

	var n int64
	for _, h := range hashes {
		ok, err := r.casRevoke(ctx, h, reason, at, nil)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (r *RedisRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	hashes, err := r.client.ZRangeByScore(ctx, redisExpiryIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, storeErr(err)
	}

	var n int64
	for _, h := range hashes {
		fields, err := r.client.HMGet(ctx, tokenKey(h), "id", "user_id").Result()
		if err != nil {
			return n, storeErr(err)
		}
		id, _ := fields[0].(string)
		user, _ := fields[1].(string)

		_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, tokenKey(h))
			if id != "" {
				pipe.Del(ctx, idKey(id))
			}
			if user != "" {
				pipe.SRem(ctx, userSetKey(user), h)
			}
			pipe.ZRem(ctx, redisExpiryIndex, h)
			return nil
		})
		if err != nil {
			return n, storeErr(err)
		}
		n++
	}
	return n, nil
}

func (r *RedisRepository) Stats(ctx context.Context, now time.Time) (*models.RefreshTokenStats, error) {
	hashes, err := r.client.ZRange(ctx, redisExpiryIndex, 0, -1).Result()
	if err != nil {
		return nil, storeErr(err)
	}

	s := &models.RefreshTokenStats{}
	for _, h := range hashes {
		fields, err := r.client.HGetAll(ctx, tokenKey(h)).Result()
		if err != nil {
			return nil, storeErr(err)
		}
		if len(fields) == 0 {
			continue
		}
		t, err := decodeRedisToken(h, fields)
		if err != nil {
			return nil, storeErr(err)
		}
		s.Total++
		switch {
		case !t.IsActive:
			s.Revoked++
		case t.Expired(now):
			s.Expired++
		default:
			s.Active++
		}
	}
	return s, nil
}
