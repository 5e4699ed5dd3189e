package service

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"

	"github.com/castlemilk/pfinance/analytics/internal/logger"
)

// LoggingInterceptor attaches log to each call's context and logs one line
// per call with its procedure, duration and result code. Install it first so
// rejected calls are logged too.
func LoggingInterceptor(log zerolog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			ctx = logger.WithContext(ctx, log)

			resp, err := next(ctx, req)

			event := log.Info()
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
				event = log.Warn().Err(err)
				if connect.CodeOf(err) == connect.CodeInternal || connect.CodeOf(err) == connect.CodeUnknown {
					event = log.Error().Err(err)
				}
			}
			event.
				Str("component", "Service").
				Str("procedure", req.Spec().Procedure).
				Dur("duration", time.Since(start)).
				Str("code", code).
				Msg("rpc")
			return resp, err
		}
	}
}
