package decorate

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WithLogging logs the start and outcome of every call under name.
// A nil logger disables logging.
func WithLogging[T any](logger *zap.Logger, name string) Decorator[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("call", name))

	return func(next Func[T]) Func[T] {
		return func(ctx context.Context) (T, error) {
			logger.Debug("call started")
			start := time.Now()

			v, err := next(ctx)

			elapsed := time.Since(start)
			if err != nil {
				logger.Warn("call failed", zap.Duration("elapsed", elapsed), zap.Error(err))
			} else {
				logger.Info("call finished", zap.Duration("elapsed", elapsed))
			}
			return v, err
		}
	}
}
