package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/server/auth"
)

func (s *GRPCServer) Refresh(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "refresh token is required")
	}

	pair, err := s.tokens.RotateRefreshToken(ctx, req.GetValue())
	if err != nil {
		s.logger.Error(ctx, "token refresh failed", "error", err)
		return nil, status.Error(codes.Internal, "token refresh failed")
	}
	if pair == nil {
		return nil, status.Error(codes.Unauthenticated, "invalid refresh token")
	}

	return structpb.NewStruct(map[string]any{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
		"rotated":      true,
	})
}

func (s *GRPCServer) Revoke(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if err := s.tokens.RevokeRefreshToken(ctx, req.GetValue(), common.RevokeReasonLogout); err != nil {
		s.logger.Error(ctx, "revoke failed", "error", err)
		return nil, status.Error(codes.Internal, "revocation failed")
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Verify(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	perms := make([]any, 0, len(claims.Permissions))
	for _, p := range claims.Permissions {
		perms = append(perms, p)
	}
	out := map[string]any{
		"userId":      claims.UserID,
		"role":        claims.Role,
		"permissions": perms,
	}
	if claims.ExpiresAt != nil {
		out["expiresAt"] = float64(claims.ExpiresAt.Unix())
	}
	return structpb.NewStruct(out)
}
