package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/server/auth"
)

// protectedMethods need a valid access token in the call metadata.
var protectedMethods = map[string]bool{
	VerifyMethod: true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		s.rec.Verification("grpc", false)
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	claims := s.tokens.VerifyAccessToken(accessToken)
	s.rec.Verification("grpc", claims != nil)
	if claims == nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(auth.WithClaims(ctx, claims), req)
}
