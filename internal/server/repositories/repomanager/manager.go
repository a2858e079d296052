package repomanager

import (
	"context"

	"github.com/snugkisses/authtokens/internal/server/repositories/refreshtokens"
)

// RepositoryManager owns the connection behind a refresh token store and
// prepares it for use.
type RepositoryManager interface {
	RunMigrations(context.Context) error
	RefreshTokens() refreshtokens.Repository
	Close() error
}
