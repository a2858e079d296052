package repomanager

import (
	"context"

	"github.com/snugkisses/authtokens/internal/server/repositories/refreshtokens"
)

// InMemoryRepositoryManager keeps a single process-local store. Tokens do
// not survive a restart.
type InMemoryRepositoryManager struct {
	tokens *refreshtokens.InMemoryRepository
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{tokens: refreshtokens.NewInMemoryRepository()}
}

func (m *InMemoryRepositoryManager) RefreshTokens() refreshtokens.Repository {
	return m.tokens
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *InMemoryRepositoryManager) Close() error { return nil }
