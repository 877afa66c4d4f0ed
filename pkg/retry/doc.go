// Package retry runs an operation again after a backoff delay when it fails
// with a retryable error.
//
// Retryability comes from the error class in wgharvest/pkg/errors: fetch,
// transient and publish failures are retried, session and persistence
// failures are not, and context cancellation always stops the loop.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return publisher.Publish(ctx, path, meta)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		Logger:      log,
//	})
package retry
