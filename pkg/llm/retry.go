package llm

import (
	"context"
	"errors"
	"time"

	"github.com/haydenk/askpdf/internal/models"
)

// withRetry runs fn up to attempts times with exponential backoff, doubling
// from baseDelay. Dimension and model mismatches are configuration faults and
// never retried. Context cancellation wins over the remaining budget.
func withRetry(ctx context.Context, attempts int, baseDelay time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := baseDelay
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrDimensionMismatch) || errors.Is(err, models.ErrModelMismatch) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// classifyCallErr turns a provider error into the pipeline taxonomy: deadline
// overruns become the retryable ErrTimeout, everything else gets kind.
func classifyCallErr(err error, kind error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrTimeout
	}
	return kind
}
