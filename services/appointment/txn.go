package appointment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	appointmentRepo "procounsellor/database/repository/appointment"

	"go.uber.org/zap"
)

// runInTransaction runs fn in a store transaction, retrying on conflicts and transient
// unavailability with exponential backoff. Every attempt gets its own deadline.
// Errors produced by fn itself (domain errors) end the loop immediately.
func (s *DefaultAppointmentService) runInTransaction(ctx context.Context, op string, fn func(ctx context.Context, tx appointmentRepo.Tx) error) error {
	logger := s.logger().With(zap.String("op", op))
	maxAttempts := s.maxAttempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.txnTimeout())
		err := s.Store.RunTransaction(attemptCtx, fn)
		cancel()

		if err == nil {
			if attempt > 1 {
				logger.Debug("transaction committed after retry", zap.Int("attempt", attempt))
			}
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		logger.Debug("transaction attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.Error(err))
		if attempt == maxAttempts {
			break
		}
		if err := sleep(ctx, s.backoffFor(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	if isUnavailable(lastErr) || ctx.Err() != nil {
		logger.Warn("store unavailable", zap.Error(lastErr))
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, lastErr)
	}
	logger.Warn("transaction retries exhausted", zap.Int("attempts", maxAttempts), zap.Error(lastErr))
	return fmt.Errorf("%w: %d attempts: %v", ErrTransactionConflict, maxAttempts, lastErr)
}

func retryable(err error) bool {
	return errors.Is(err, appointmentRepo.ErrConflict) ||
		errors.Is(err, appointmentRepo.ErrDuplicate) ||
		isUnavailable(err)
}

func isUnavailable(err error) bool {
	return errors.Is(err, appointmentRepo.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}

// backoffFor returns base*2^(attempt-1) plus up to 50% jitter.
func (s *DefaultAppointmentService) backoffFor(attempt int) time.Duration {
	d := s.backoff() << (attempt - 1)
	if half := int64(d / 2); half > 0 {
		d += time.Duration(rand.Int64N(half))
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// storeErr maps a non-transactional store failure to a service error.
func storeErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, appointmentRepo.ErrNotFound):
		return notFound
	case isUnavailable(err):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	default:
		return err
	}
}
