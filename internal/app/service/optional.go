package service

import (
	"context"

	"go.uber.org/zap"
)

// runOptional runs a best-effort step. Errors and panics are logged and
// reported as ok == false; they never reach the caller.
func runOptional[T any](ctx context.Context, logger *zap.Logger, step string, fn func(context.Context) (T, error)) (result T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("optional step panicked",
				zap.String("step", step),
				zap.Any("panic", r),
			)
			var zero T
			result, ok = zero, false
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		logger.Warn("optional step failed",
			zap.String("step", step),
			zap.Error(err),
		)
		var zero T
		return zero, false
	}

	return v, true
}
