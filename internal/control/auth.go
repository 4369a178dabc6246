package control

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const bearerPrefix = "Bearer "

// AuthInterceptor rejects calls whose "authorization" metadata does not carry
// token. An empty token disables the check.
func AuthInterceptor(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if token != "" {
			md, ok := metadata.FromIncomingContext(ctx)
			if !ok {
				return nil, status.Error(codes.Unauthenticated, "missing metadata")
			}
			if err := checkBearer(md.Get("authorization"), token); err != nil {
				return nil, err
			}
		}
		return handler(ctx, req)
	}
}

func checkBearer(vals []string, token string) error {
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing authorization header")
	}
	got := strings.TrimPrefix(vals[0], bearerPrefix)
	if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
		return status.Error(codes.Unauthenticated, "invalid token")
	}
	return nil
}

// bearerToken attaches a bearer token to every call.
type bearerToken string

// TokenCredentials returns per-RPC credentials sending token as a bearer
// authorization header.
func TokenCredentials(token string) credentials.PerRPCCredentials {
	return bearerToken(token)
}

func (t bearerToken) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	return map[string]string{"authorization": bearerPrefix + string(t)}, nil
}

func (bearerToken) RequireTransportSecurity() bool { return true }
