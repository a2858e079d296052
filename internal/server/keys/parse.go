package keys

import (
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/youmark/pkcs8"
	"golang.org/x/crypto/ssh"

	"github.com/snugkisses/authtokens/internal/common"
)

// encryptedPKCS8Type is written by OpenSSL 3 and Node when a key is
// generated with a cipher and passphrase.
const encryptedPKCS8Type = "ENCRYPTED PRIVATE KEY"

func invalidKey(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrConfiguration, fmt.Sprintf(format, args...))
}

// ParseRSAPrivateKey decodes PKCS#1, PKCS#8 (plain or encrypted), legacy
// encrypted PEM and OpenSSH private keys. The passphrase is only used when
// the key turns out to be encrypted. Every failure matches
// common.ErrConfiguration.
func ParseRSAPrivateKey(m *Material) (*rsa.PrivateKey, error) {
	if m == nil || len(m.PEM) == 0 {
		return nil, invalidKey("empty private key")
	}

	if block, _ := pem.Decode(m.PEM); block != nil && block.Type == encryptedPKCS8Type {
		if len(m.Passphrase) == 0 {
			return nil, invalidKey("private key is encrypted and no passphrase is configured")
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, m.Passphrase)
		if err != nil {
			return nil, invalidKey("parse encrypted pkcs8 key: %v", err)
		}
		return key, nil
	}

	raw, err := ssh.ParseRawPrivateKey(m.PEM)
	var needPass *ssh.PassphraseMissingError
	if errors.As(err, &needPass) {
		if len(m.Passphrase) == 0 {
			return nil, invalidKey("private key is encrypted and no passphrase is configured")
		}
		raw, err = ssh.ParseRawPrivateKeyWithPassphrase(m.PEM, m.Passphrase)
	}
	if err != nil {
		return nil, invalidKey("parse private key: %v", err)
	}

	key, ok := raw.(*rsa.PrivateKey)
	if !ok {
		return nil, invalidKey("private key is %T, want RSA", raw)
	}
	return key, nil
}

// ParseRSAPublicKey decodes a PKIX or PKCS#1 public key or a certificate.
func ParseRSAPublicKey(m *Material) (*rsa.PublicKey, error) {
	if m == nil || len(m.PEM) == 0 {
		return nil, invalidKey("empty public key")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(m.PEM)
	if err != nil {
		return nil, invalidKey("parse public key: %v", err)
	}
	return key, nil
}
