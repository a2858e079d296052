// Package cryptox holds the hashing and key-encoding primitives shared by
// the token service and the key generator.
package cryptox

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// DefaultRSABits is the modulus size used by the key generator.
const DefaultRSABits = 2048

// HashToken returns the lowercase hex SHA-256 of a bearer token. Only this
// value is ever persisted; the token itself is never stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateRSAKey creates a new RSA private key of the given size.
func GenerateRSAKey(bits int) (*rsa.PrivateKey, error) {
	if bits <= 0 {
		bits = DefaultRSABits
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// EncodePrivateKeyPEM serializes key as PKCS#8 PEM. When passphrase is not
// empty the key is written in the encrypted OpenSSH format instead, which
// keys.ParseRSAPrivateKey reads back with the same passphrase.
func EncodePrivateKeyPEM(key *rsa.PrivateKey, passphrase []byte) ([]byte, error) {
	if len(passphrase) > 0 {
		block, err := ssh.MarshalPrivateKeyWithPassphrase(key, "", passphrase)
		if err != nil {
			return nil, fmt.Errorf("marshal encrypted key: %w", err)
		}
		return pem.EncodeToMemory(block), nil
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal pkcs8 key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicKeyPEM serializes pub as a PKIX "PUBLIC KEY" PEM block.
func EncodePublicKeyPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
