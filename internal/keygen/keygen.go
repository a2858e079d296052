// Package keygen creates the RSA key files the token service signs with and
// prints them in the base64 form the env key source expects.
package keygen

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/snugkisses/authtokens/internal/cryptox"
	"github.com/snugkisses/authtokens/internal/filex"
	"github.com/snugkisses/authtokens/internal/shared"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPassphraseMismatch = errors.New("passphrases do not match")

type Options struct {
	OutDir string
	Bits   int
	// Refresh also writes a separate refresh.pem signing key.
	Refresh bool
}

// Result holds the written paths and their base64 encodings.
type Result struct {
	PrivatePath string
	PublicPath  string
	RefreshPath string

	PrivateBase64 string
	PublicBase64  string
	RefreshBase64 string
}

// Generate writes private.pem and public.pem (and refresh.pem when asked)
// into opts.OutDir. Private keys are encrypted when passphrase is not empty.
func Generate(opts Options, passphrase []byte) (*Result, error) {
	if opts.OutDir == "" {
		opts.OutDir = "."
	}
	dir, err := filex.EnsureDir(opts.OutDir)
	if err != nil {
		return nil, err
	}
	opts.OutDir = dir

	key, err := cryptox.GenerateRSAKey(opts.Bits)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	privPEM, err := cryptox.EncodePrivateKeyPEM(key, passphrase)
	if err != nil {
		return nil, err
	}
	pubPEM, err := cryptox.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		return nil, err
	}

	res := &Result{
		PrivatePath:   filepath.Join(opts.OutDir, "private.pem"),
		PublicPath:    filepath.Join(opts.OutDir, "public.pem"),
		PrivateBase64: base64.StdEncoding.EncodeToString(privPEM),
		PublicBase64:  base64.StdEncoding.EncodeToString(pubPEM),
	}
	if err := os.WriteFile(res.PrivatePath, privPEM, 0o600); err != nil {
		return nil, err
	}
	if err := os.WriteFile(res.PublicPath, pubPEM, 0o644); err != nil {
		return nil, err
	}

	if opts.Refresh {
		rk, err := cryptox.GenerateRSAKey(opts.Bits)
		if err != nil {
			return nil, fmt.Errorf("generate refresh key: %w", err)
		}
		refPEM, err := cryptox.EncodePrivateKeyPEM(rk, passphrase)
		if err != nil {
			return nil, err
		}
		res.RefreshPath = filepath.Join(opts.OutDir, "refresh.pem")
		res.RefreshBase64 = base64.StdEncoding.EncodeToString(refPEM)
		if err := os.WriteFile(res.RefreshPath, refPEM, 0o600); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// PromptPassphrase reads a passphrase twice from the terminal. An empty
// first answer means no encryption.
func PromptPassphrase(w io.Writer, fd int) ([]byte, error) {
	fmt.Fprint(w, "Passphrase (empty for none): ")
	first, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(first) == 0 {
		return nil, nil
	}

	fmt.Fprint(w, "Repeat passphrase: ")
	second, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	defer shared.WipeByteArray(second)
	if !bytes.Equal(first, second) {
		shared.WipeByteArray(first)
		return nil, errPassphraseMismatch
	}
	return first, nil
}

// ServiceKeyBytes is the entropy of a generated INTERNAL_SERVICE_KEY.
const ServiceKeyBytes = 32

// NewServiceKey returns a random hex secret for the internal HTTP routes.
func NewServiceKey() (string, error) {
	return shared.MakeRandHexString(ServiceKeyBytes)
}

// PrintEnv writes the env assignments for the generated keys.
func PrintEnv(w io.Writer, r *Result, encrypted bool) {
	fmt.Fprintf(w, "JWT_KEY_SOURCE=env\n")
	fmt.Fprintf(w, "JWT_SECRET_KEY_BASE64=%s\n", r.PrivateBase64)
	fmt.Fprintf(w, "JWT_PUBLIC_KEY_BASE64=%s\n", r.PublicBase64)
	if r.RefreshBase64 != "" {
		fmt.Fprintf(w, "JWT_REFRESH_SECRET_BASE64=%s\n", r.RefreshBase64)
	}
	if encrypted {
		fmt.Fprintln(w, "# set JWT_PASSPHRASE to the passphrase you entered")
	}
}
