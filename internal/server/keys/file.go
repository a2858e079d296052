package keys

import (
	"context"
	"fmt"
	"os"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/filex"
)

// FilePaths names PEM files on disk. Relative paths resolve against the
// process working directory.
type FilePaths struct {
	Private    string // JWT_SECRET_KEY
	Public     string // JWT_PUBLIC_KEY
	Refresh    string // JWT_REFRESH_SECRET
	Passphrase string // JWT_PASSPHRASE
}

// FileProvider reads keys from the filesystem on every call.
type FileProvider struct {
	paths FilePaths
}

func NewFileProvider(paths FilePaths) *FileProvider {
	return &FileProvider{paths: paths}
}

func readKeyFile(name, path string) ([]byte, error) {
	if path == "" {
		return nil, missing(name)
	}
	path, err := filex.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrConfiguration, name, err)
	}
	return b, nil
}

func (p *FileProvider) PrivateSigningKey(context.Context) (*Material, error) {
	b, err := readKeyFile("JWT_SECRET_KEY", p.paths.Private)
	if err != nil {
		return nil, err
	}
	return &Material{PEM: b, Passphrase: []byte(p.paths.Passphrase)}, nil
}

func (p *FileProvider) PublicVerifyingKey(context.Context) (*Material, error) {
	b, err := readKeyFile("JWT_PUBLIC_KEY", p.paths.Public)
	if err != nil {
		return nil, err
	}
	return &Material{PEM: b}, nil
}

func (p *FileProvider) RefreshSigningKey(ctx context.Context) (*Material, error) {
	if p.paths.Refresh == "" {
		return p.PrivateSigningKey(ctx)
	}
	b, err := readKeyFile("JWT_REFRESH_SECRET", p.paths.Refresh)
	if err != nil {
		return nil, err
	}
	return &Material{PEM: b, Passphrase: []byte(p.paths.Passphrase)}, nil
}
