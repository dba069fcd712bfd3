package rpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"connectrpc.com/connect"
)

var errUnauthenticated = errors.New("missing or invalid API key")

// authInterceptor requires an API key on every call. An empty key disables it.
type authInterceptor struct {
	apiKey string
}

func newAuthInterceptor(apiKey string) connect.Interceptor {
	return &authInterceptor{apiKey: apiKey}
}

func (i *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if i.apiKey == "" {
			return next(ctx, req)
		}

		apiKey := req.Header().Get("X-API-Key")
		if apiKey == "" {
			if token, ok := strings.CutPrefix(req.Header().Get("Authorization"), "Bearer "); ok {
				apiKey = token
			}
		}

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(i.apiKey)) != 1 {
			return nil, connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
		}
		return next(ctx, req)
	}
}

func (i *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next // No streaming RPCs in our API
}

func (i *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next // No streaming RPCs in our API
}
