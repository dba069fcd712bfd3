package rpc

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/joaovitorcunhalimaviana-boop/site-joao-sub004/internal/logging"
)

// loggingInterceptor logs RPC calls
type loggingInterceptor struct{}

func newLoggingInterceptor() connect.Interceptor {
	return &loggingInterceptor{}
}

func (i *loggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		if err != nil {
			logging.Warn("RPC failed",
				logging.String("procedure", req.Spec().Procedure),
				logging.String("code", connect.CodeOf(err).String()),
				logging.Duration("took", time.Since(start)),
				logging.Err(err))
			return resp, err
		}
		logging.Debug("RPC call",
			logging.String("procedure", req.Spec().Procedure),
			logging.String("peer", req.Peer().Addr),
			logging.Duration("took", time.Since(start)))
		return resp, nil
	}
}

func (i *loggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next // No streaming RPCs in our API
}

func (i *loggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next // No streaming RPCs in our API
}
