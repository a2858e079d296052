// Package auth issues, verifies, rotates and revokes the RS256 tokens used
// by the CRM. Access tokens are short-lived and stateless; refresh tokens
// are persisted by hash so that they can be rotated once and revoked.
package auth

import (
	"context"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/logging"
	"github.com/snugkisses/authtokens/internal/shared"
	"github.com/snugkisses/authtokens/internal/server/keys"
	"github.com/snugkisses/authtokens/internal/server/repositories/refreshtokens"
)

// Settings are the token parameters taken from configuration.
type Settings struct {
	Issuer           string
	Audience         string
	DefaultRole      string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	StrictRevocation bool
}

// DefaultSettings matches the values the CRM clients expect.
func DefaultSettings() Settings {
	return Settings{
		Issuer:      "project-rainfall",
		Audience:    "crm-system",
		DefaultRole: "client",
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
	}
}

// Recorder receives counters about token activity.
type Recorder interface {
	TokenIssued(kind string)
	Rotation(result string)
	Revoked(n int64)
	Purged(n int64)
}

type nopRecorder struct{}

func (nopRecorder) TokenIssued(string) {}
func (nopRecorder) Rotation(string)    {}
func (nopRecorder) Revoked(int64)      {}
func (nopRecorder) Purged(int64)       {}

type Option func(*Service)

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.rec = r }
}

// Service is constructed once at startup and shared by every transport.
type Service struct {
	accessKey  *rsa.PrivateKey
	accessPub  *rsa.PublicKey
	refreshKey *rsa.PrivateKey
	accessKID  string
	refreshKID string

	repo     refreshtokens.Repository
	settings Settings

	accessParser  *jwt.Parser
	refreshParser *jwt.Parser

	now func() time.Time
	log logging.Logger
	rec Recorder
}

// NewService loads and parses every key from provider. Any missing or
// unreadable key is returned as an error so the process can refuse to start.
func NewService(ctx context.Context, provider keys.Provider, repo refreshtokens.Repository, settings Settings, opts ...Option) (*Service, error) {
	privMat, err := provider.PrivateSigningKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	defer shared.WipeByteArray(privMat.Passphrase)
	accessKey, err := keys.ParseRSAPrivateKey(privMat)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}

	pubMat, err := provider.PublicVerifyingKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load verifying key: %w", err)
	}
	accessPub, err := keys.ParseRSAPublicKey(pubMat)
	if err != nil {
		return nil, fmt.Errorf("verifying key: %w", err)
	}
	if !accessPub.Equal(&accessKey.PublicKey) {
		return nil, fmt.Errorf("%w: verifying key does not match the signing key", common.ErrConfiguration)
	}

	refMat, err := provider.RefreshSigningKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load refresh key: %w", err)
	}
	defer shared.WipeByteArray(refMat.Passphrase)
	refreshKey, err := keys.ParseRSAPrivateKey(refMat)
	if err != nil {
		return nil, fmt.Errorf("refresh key: %w", err)
	}

	return newService(accessKey, accessPub, refreshKey, repo, settings, opts...)
}

func newService(accessKey *rsa.PrivateKey, accessPub *rsa.PublicKey, refreshKey *rsa.PrivateKey, repo refreshtokens.Repository, settings Settings, opts ...Option) (*Service, error) {
	d := DefaultSettings()
	if settings.Issuer == "" {
		settings.Issuer = d.Issuer
	}
	if settings.Audience == "" {
		settings.Audience = d.Audience
	}
	if settings.DefaultRole == "" {
		settings.DefaultRole = d.DefaultRole
	}
	if settings.AccessTTL <= 0 {
		settings.AccessTTL = d.AccessTTL
	}
	if settings.RefreshTTL <= 0 {
		settings.RefreshTTL = d.RefreshTTL
	}

	accessKID, err := keyID(accessPub)
	if err != nil {
		return nil, err
	}
	refreshKID, err := keyID(&refreshKey.PublicKey)
	if err != nil {
		return nil, err
	}

	s := &Service{
		accessKey:  accessKey,
		accessPub:  accessPub,
		refreshKey: refreshKey,
		accessKID:  accessKID,
		refreshKID: refreshKID,
		repo:       repo,
		settings:   settings,
		now:        time.Now,
		log:        logging.Nop{},
		rec:        nopRecorder{},
	}
	for _, o := range opts {
		o(s)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(settings.Issuer),
		jwt.WithAudience(settings.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	}
	s.accessParser = jwt.NewParser(parserOpts...)
	s.refreshParser = jwt.NewParser(parserOpts...)
	return s, nil
}

// Settings returns the effective token parameters.
func (s *Service) Settings() Settings {
	return s.settings
}
