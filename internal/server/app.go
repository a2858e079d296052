// Package server wires configuration, key material, the refresh token store
// and the token service into the gRPC and HTTP servers, and runs them until
// the process is signalled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snugkisses/authtokens/internal/logging"
	"github.com/snugkisses/authtokens/internal/server/auth"
	"github.com/snugkisses/authtokens/internal/server/config"
	"github.com/snugkisses/authtokens/internal/server/httpapi"
	"github.com/snugkisses/authtokens/internal/server/keys"
	"github.com/snugkisses/authtokens/internal/server/metrics"
	"github.com/snugkisses/authtokens/internal/server/repositories/repomanager"

	gs "github.com/snugkisses/authtokens/internal/server/grpc"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	repos   repomanager.RepositoryManager
	tokens  *auth.Service
	metrics *metrics.Collector
}

func newRepositoryManager(c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.Store {
	case config.StorePostgres:
		return repomanager.NewPostgresRepositoryManager(c.DatabaseDSN)
	case config.StoreRedis:
		return repomanager.NewRedisRepositoryManager(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		}), nil
	case config.StoreMemory:
		return repomanager.NewInMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", c.Store)
	}
}

// NewApp prepares every dependency. Missing or unreadable keys and an
// unreachable store are fatal here, before any listener is opened.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel)
	if err != nil {
		return nil, err
	}

	rm, err := newRepositoryManager(c)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}
	if err := rm.RunMigrations(ctx); err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("store migrations: %w", err)
	}

	provider, err := keys.NewProvider(ctx, c)
	if err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("key provider: %w", err)
	}

	m := metrics.New()
	svc, err := auth.NewService(ctx, provider, rm.RefreshTokens(), auth.Settings{
		Issuer:           c.Issuer,
		Audience:         c.Audience,
		DefaultRole:      c.DefaultRole,
		AccessTTL:        c.AccessTokenValidityDuration,
		RefreshTTL:       c.RefreshTokenValidityDuration,
		StrictRevocation: c.StrictRevocation,
	}, auth.WithLogger(logger.With("module", "auth")), auth.WithRecorder(m))
	if err != nil {
		_ = rm.Close()
		return nil, fmt.Errorf("token service: %w", err)
	}

	return &App{config: c, logger: logger, repos: rm, tokens: svc, metrics: m}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.tokens, app.metrics)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, "grpc server", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.tokens, app.logger.With("module", "http_server"), app.metrics, httpapi.Options{
		InternalServiceKey: app.config.InternalServiceKey,
		SecureCookies:      app.config.SecureCookies,
	})
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           httpapi.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "http server", "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled, a signal arrives or a server fails,
// then closes the store.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "store", app.config.Store, "key_source", app.config.KeySource)

	app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.tokens.RunPurger(ctx, app.config.PurgeInterval)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return app.repos.Close()
}
