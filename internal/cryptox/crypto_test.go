package cryptox

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestHashToken(t *testing.T) {
	sum := sha256.Sum256([]byte("tok123"))
	want := hex.EncodeToString(sum[:])

	assert.Equal(t, want, HashToken("tok123"))
	assert.Len(t, HashToken(""), 64)
	assert.NotEqual(t, HashToken("a"), HashToken("b"))
}

func TestEncodePrivateKeyPEM_Plain(t *testing.T) {
	key, err := GenerateRSAKey(DefaultRSABits)
	require.NoError(t, err)

	out, err := EncodePrivateKeyPEM(key, nil)
	require.NoError(t, err)

	block, _ := pem.Decode(out)
	require.NotNil(t, block)
	assert.Equal(t, "PRIVATE KEY", block.Type)

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))
}

func TestEncodePrivateKeyPEM_WithPassphrase(t *testing.T) {
	key, err := GenerateRSAKey(DefaultRSABits)
	require.NoError(t, err)

	out, err := EncodePrivateKeyPEM(key, []byte("s3cret"))
	require.NoError(t, err)

	_, err = ssh.ParseRawPrivateKey(out)
	var missing *ssh.PassphraseMissingError
	assert.ErrorAs(t, err, &missing)

	parsed, err := ssh.ParseRawPrivateKeyWithPassphrase(out, []byte("s3cret"))
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))
}

func TestEncodePublicKeyPEM(t *testing.T) {
	key, err := GenerateRSAKey(DefaultRSABits)
	require.NoError(t, err)

	out, err := EncodePublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	block, _ := pem.Decode(out)
	require.NotNil(t, block)
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(pub))
}
