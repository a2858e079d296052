package repomanager

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/snugkisses/authtokens/internal/server/repositories/refreshtokens"
)

// RedisRepositoryManager vends the Redis-backed store. Redis needs no schema,
// so RunMigrations only checks the server is reachable.
type RedisRepositoryManager struct {
	client redis.UniversalClient
}

func NewRedisRepositoryManager(opts *redis.Options) *RedisRepositoryManager {
	return &RedisRepositoryManager{client: redis.NewClient(opts)}
}

func (m *RedisRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return refreshtokens.NewRedisRepository(m.client)
}

func (m *RedisRepositoryManager) RunMigrations(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (m *RedisRepositoryManager) Close() error {
	return m.client.Close()
}
