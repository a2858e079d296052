package auth

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"
)

// JWK is the public half of an RSA signing key in RFC 7517 form.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// keyID is the base64url SHA-256 of the PKIX encoding of pub.
func keyID(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("key id: %w", err)
	}
	sum := sha256.Sum256(der)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}

func toJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Alg: "RS256",
		Kid: kid,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// JWKS lists the verification keys, the refresh key only when it differs
// from the access key.
func (s *Service) JWKS() JWKSet {
	set := JWKSet{Keys: []JWK{toJWK(s.accessKID, s.accessPub)}}
	if s.refreshKID != s.accessKID {
		set.Keys = append(set.Keys, toJWK(s.refreshKID, &s.refreshKey.PublicKey))
	}
	return set
}

// PublicKey returns the access token verification key.
func (s *Service) PublicKey() *rsa.PublicKey {
	return s.accessPub
}
