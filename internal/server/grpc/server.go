package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/snugkisses/authtokens/internal/logging"
	"github.com/snugkisses/authtokens/internal/server/auth"
)

// TokenService is the part of auth.Service exposed over gRPC.
type TokenService interface {
	RotateRefreshToken(ctx context.Context, oldToken string) (*auth.TokenPair, error)
	RevokeRefreshToken(ctx context.Context, token, reason string) error
	VerifyAccessToken(token string) *auth.AccessClaims
}

// VerificationRecorder counts access token checks made by the interceptor.
type VerificationRecorder interface {
	Verification(transport string, ok bool)
}

type nopVerification struct{}

func (nopVerification) Verification(string, bool) {}

type GRPCServer struct {
	address string
	tokens  TokenService
	logger  logging.Logger
	rec     VerificationRecorder
}

func NewGRPCServer(address string, l logging.Logger, tokens TokenService, rec VerificationRecorder) *GRPCServer {
	if rec == nil {
		rec = nopVerification{}
	}
	return &GRPCServer{
		address: address,
		logger:  l.With("module", "grpc_server"),
		tokens:  tokens,
		rec:     rec,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	RegisterTokenServiceServer(srv, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
