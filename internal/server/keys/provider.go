// Package keys supplies the RSA key material used to sign and verify tokens.
//
// A Provider only locates and returns PEM bytes. Parsing happens once, when
// the token service is constructed, so a bad or missing key aborts startup.
package keys

import (
	"context"
	"fmt"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/server/config"
)

// Material is a PEM-encoded key with the passphrase protecting it, if any.
type Material struct {
	PEM        []byte
	Passphrase []byte
}

// Provider returns key material for the token service. RefreshSigningKey
// falls back to the access signing key when no dedicated refresh key is
// configured.
type Provider interface {
	PrivateSigningKey(ctx context.Context) (*Material, error)
	PublicVerifyingKey(ctx context.Context) (*Material, error)
	RefreshSigningKey(ctx context.Context) (*Material, error)
}

func missing(name string) error {
	return fmt.Errorf("%w: %s is not set", common.ErrConfiguration, name)
}

// NewProvider picks the Provider implementation named by cfg.KeySource.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.KeySource {
	case config.KeySourceEnv:
		return NewEnvProvider(EnvKeys{
			Private:    cfg.PrivateKeyBase64,
			Public:     cfg.PublicKeyBase64,
			Refresh:    cfg.RefreshKeyBase64,
			Passphrase: cfg.KeyPassphrase,
		}), nil
	case config.KeySourceFile:
		return NewFileProvider(FilePaths{
			Private:    cfg.PrivateKeyPath,
			Public:     cfg.PublicKeyPath,
			Refresh:    cfg.RefreshKeyPath,
			Passphrase: cfg.KeyPassphrase,
		}), nil
	case config.KeySourceS3:
		return NewS3Provider(ctx, S3Options{
			User:          cfg.S3RootUser,
			Password:      cfg.S3RootPassword,
			Region:        cfg.S3Region,
			BaseEndpoint:  cfg.S3BaseEndpoint,
			Bucket:        cfg.S3Bucket,
			PrivateObject: cfg.S3PrivateKeyObject,
			PublicObject:  cfg.S3PublicKeyObject,
			RefreshObject: cfg.S3RefreshKeyObject,
			Passphrase:    cfg.KeyPassphrase,
		})
	default:
		return nil, fmt.Errorf("%w: unknown key source %q", common.ErrConfiguration, cfg.KeySource)
	}
}
