package auth

import (
	"context"
	"encoding/base64"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/cryptox"
	"github.com/snugkisses/authtokens/internal/server/keys"
	"github.com/snugkisses/authtokens/internal/server/repositories/refreshtokens"
)

func envKeys(t *testing.T, private, public, refresh []byte, passphrase string) keys.EnvKeys {
	t.Helper()
	enc := func(b []byte) string {
		if b == nil {
			return ""
		}
		return base64.StdEncoding.EncodeToString(b)
	}
	return keys.EnvKeys{Private: enc(private), Public: enc(public), Refresh: enc(refresh), Passphrase: passphrase}
}

func TestNewService_FromProvider(t *testing.T) {
	access, refresh, other := testKeys(t)
	ctx := context.Background()

	privPEM, err := cryptox.EncodePrivateKeyPEM(access, []byte("pw"))
	require.NoError(t, err)
	pubPEM, err := cryptox.EncodePublicKeyPEM(&access.PublicKey)
	require.NoError(t, err)
	refreshPEM, err := cryptox.EncodePrivateKeyPEM(refresh, []byte("pw"))
	require.NoError(t, err)
	otherPub, err := cryptox.EncodePublicKeyPEM(&other.PublicKey)
	require.NoError(t, err)

	t.Run("dedicated refresh key", func(t *testing.T) {
		p := keys.NewEnvProvider(envKeys(t, privPEM, pubPEM, refreshPEM, "pw"))
		svc, err := NewService(ctx, p, refreshtokens.NewInMemoryRepository(), DefaultSettings())
		require.NoError(t, err)

		pair, err := svc.IssueTokenPair(ctx, Grant{SubjectID: "u1"})
		require.NoError(t, err)
		assert.NotNil(t, svc.VerifyAccessToken(pair.AccessToken))
		// refresh token is signed with a different key than access tokens
		assert.Nil(t, svc.VerifyAccessToken(pair.RefreshToken))

		rotated, err := svc.RotateRefreshToken(ctx, pair.RefreshToken)
		require.NoError(t, err)
		assert.NotNil(t, rotated)
	})

	t.Run("refresh falls back to access key", func(t *testing.T) {
		p := keys.NewEnvProvider(envKeys(t, privPEM, pubPEM, nil, "pw"))
		svc, err := NewService(ctx, p, refreshtokens.NewInMemoryRepository(), Settings{})
		require.NoError(t, err)
		assert.Equal(t, svc.accessKID, svc.refreshKID)
		assert.Equal(t, DefaultSettings(), svc.Settings())
	})

	t.Run("missing private key", func(t *testing.T) {
		p := keys.NewEnvProvider(envKeys(t, nil, pubPEM, nil, ""))
		_, err := NewService(ctx, p, refreshtokens.NewInMemoryRepository(), DefaultSettings())
		assert.ErrorIs(t, err, common.ErrConfiguration)
	})

	t.Run("missing public key", func(t *testing.T) {
		p := keys.NewEnvProvider(envKeys(t, privPEM, nil, nil, "pw"))
		_, err := NewService(ctx, p, refreshtokens.NewInMemoryRepository(), DefaultSettings())
		assert.ErrorIs(t, err, common.ErrConfiguration)
	})

	t.Run("wrong passphrase", func(t *testing.T) {
		p := keys.NewEnvProvider(envKeys(t, privPEM, pubPEM, nil, "nope"))
		_, err := NewService(ctx, p, refreshtokens.NewInMemoryRepository(), DefaultSettings())
		assert.ErrorIs(t, err, common.ErrConfiguration)
	})

	t.Run("public key does not match", func(t *testing.T) {
		p := keys.NewEnvProvider(envKeys(t, privPEM, otherPub, nil, "pw"))
		_, err := NewService(ctx, p, refreshtokens.NewInMemoryRepository(), DefaultSettings())
		assert.ErrorIs(t, err, common.ErrConfiguration)
	})
}

func TestJWKS(t *testing.T) {
	access, refresh, _ := testKeys(t)

	shared := newFixture(t, DefaultSettings())
	set := shared.svc.JWKS()
	require.Len(t, set.Keys, 1)

	k := set.Keys[0]
	assert.Equal(t, "RSA", k.Kty)
	assert.Equal(t, "sig", k.Use)
	assert.Equal(t, "RS256", k.Alg)
	assert.Equal(t, shared.svc.accessKID, k.Kid)

	n, err := base64.RawURLEncoding.DecodeString(k.N)
	require.NoError(t, err)
	assert.Equal(t, 0, new(big.Int).SetBytes(n).Cmp(access.PublicKey.N))
	e, err := base64.RawURLEncoding.DecodeString(k.E)
	require.NoError(t, err)
	assert.EqualValues(t, access.PublicKey.E, new(big.Int).SetBytes(e).Int64())
	assert.True(t, access.PublicKey.Equal(shared.svc.PublicKey()))

	svc, err := newService(access, &access.PublicKey, refresh, refreshtokens.NewInMemoryRepository(), DefaultSettings())
	require.NoError(t, err)
	set = svc.JWKS()
	require.Len(t, set.Keys, 2)
	assert.NotEqual(t, set.Keys[0].Kid, set.Keys[1].Kid)
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	c := &AccessClaims{UserID: "u1"}
	got, ok := ClaimsFromContext(WithClaims(context.Background(), c))
	require.True(t, ok)
	assert.Same(t, c, got)
}
