package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/snugkisses/authtokens/internal/common"
	"github.com/snugkisses/authtokens/internal/logging"
	"github.com/snugkisses/authtokens/internal/server/auth"
)

func TestInterceptor_UnprotectedMethodPassesThrough(t *testing.T) {
	s := NewGRPCServer("", logging.Nop{}, newFakeTokens(), nil)
	info := &grpc.UnaryServerInfo{FullMethod: RefreshMethod}

	called := false
	resp, err := s.accessTokenInterceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "ok", resp)
}

func TestInterceptor_ProtectedMethod(t *testing.T) {
	tokens := newFakeTokens()
	tokens.access["good"] = &auth.AccessClaims{UserID: "u1"}
	s := NewGRPCServer("", logging.Nop{}, tokens, nil)
	info := &grpc.UnaryServerInfo{FullMethod: VerifyMethod}

	_, err := s.accessTokenInterceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		t.Fatal("handler should not be called without a token")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "bad"))
	_, err = s.accessTokenInterceptor(bad, nil, info, func(context.Context, any) (any, error) {
		t.Fatal("handler should not be called with an invalid token")
		return nil, nil
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	good := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AccessTokenHeaderName, "good"))
	_, err = s.accessTokenInterceptor(good, nil, info, func(ctx context.Context, _ any) (any, error) {
		claims, ok := auth.ClaimsFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "u1", claims.UserID)
		return nil, nil
	})
	assert.NoError(t, err)
}
