// Package logging writes eventbus events to a zap logger.
package logging

import (
	"context"

	eventbus "github.com/hanpama/mongograph/internal/eventbus"
	events "github.com/hanpama/mongograph/internal/events"
	reqid "github.com/hanpama/mongograph/internal/reqid"
	"go.uber.org/zap"
)

// New builds a production logger, or a development one when dev is set.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopmentConfig().Build()
	}
	return zap.NewProduction()
}

// Attach subscribes logger to the global event bus. Successful reads and
// translations log at debug level, failures at warn.
func Attach(logger *zap.Logger) (detach func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			logger.Info("http request",
				withRequestID(ctx,
					zap.String("method", e.Request.Method),
					zap.String("path", e.Request.URL.Path),
					zap.Int("status", e.Status),
					zap.Duration("duration", e.Duration),
				)...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.TranslateFinish) {
			fields := withRequestID(ctx,
				zap.String("operationName", e.OperationName),
				zap.Strings("collections", e.Collections),
				zap.Duration("duration", e.Duration),
			)
			if e.Err != nil {
				logger.Warn("translate failed", append(fields, zap.Error(e.Err))...)
				return
			}
			logger.Debug("translated", fields...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.CollectionReadFinish) {
			fields := withRequestID(ctx,
				zap.String("collection", e.Collection),
				zap.String("mode", string(e.Mode)),
				zap.Int("index", e.Index),
				zap.Int("documents", e.Documents),
				zap.Duration("duration", e.Duration),
			)
			if e.Err != nil {
				logger.Warn("collection read failed", append(fields, zap.Error(e.Err))...)
				return
			}
			logger.Debug("collection read", fields...)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func withRequestID(ctx context.Context, fields ...zap.Field) []zap.Field {
	if rid, ok := reqid.FromContext(ctx); ok {
		return append(fields, zap.String("requestId", rid))
	}
	return fields
}
