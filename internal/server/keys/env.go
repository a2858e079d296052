package keys

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/snugkisses/authtokens/internal/common"
)

// EnvKeys holds base64-encoded PEM keys taken from the environment.
type EnvKeys struct {
	Private    string // JWT_SECRET_KEY_BASE64
	Public     string // JWT_PUBLIC_KEY_BASE64
	Refresh    string // JWT_REFRESH_SECRET_BASE64
	Passphrase string // JWT_PASSPHRASE
}

// EnvProvider serves keys that arrive base64-encoded in environment
// variables, as on edge deployments without a writable filesystem.
type EnvProvider struct {
	keys EnvKeys
}

func NewEnvProvider(keys EnvKeys) *EnvProvider {
	return &EnvProvider{keys: keys}
}

func decodeBase64(name, value string) ([]byte, error) {
	if value == "" {
		return nil, missing(name)
	}
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64: %v", common.ErrConfiguration, name, err)
	}
	return b, nil
}

func (p *EnvProvider) PrivateSigningKey(context.Context) (*Material, error) {
	b, err := decodeBase64("JWT_SECRET_KEY_BASE64", p.keys.Private)
	if err != nil {
		return nil, err
	}
	return &Material{PEM: b, Passphrase: []byte(p.keys.Passphrase)}, nil
}

func (p *EnvProvider) PublicVerifyingKey(context.Context) (*Material, error) {
	b, err := decodeBase64("JWT_PUBLIC_KEY_BASE64", p.keys.Public)
	if err != nil {
		return nil, err
	}
	return &Material{PEM: b}, nil
}

func (p *EnvProvider) RefreshSigningKey(ctx context.Context) (*Material, error) {
	if p.keys.Refresh == "" {
		return p.PrivateSigningKey(ctx)
	}
	b, err := decodeBase64("JWT_REFRESH_SECRET_BASE64", p.keys.Refresh)
	if err != nil {
		return nil, err
	}
	return &Material{PEM: b, Passphrase: []byte(p.keys.Passphrase)}, nil
}
