package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/mmynk/mamachef/internal/gateway"
)

// generate calls the model, retrying network failures only. Missing
// credentials and upstream answers are returned after the first attempt.
func generate(ctx context.Context, gen gateway.Generator, req gateway.Request, opts Options) (string, error) {
	return withRetry(ctx, opts, opts.Timeout, req.Model, func(ctx context.Context) (string, error) {
		return gen.Generate(ctx, req)
	})
}

// withRetry runs call under timeout with exponential backoff between
// attempts. Only *gateway.NetworkError is retried.
func withRetry[T any](ctx context.Context, opts Options, timeout time.Duration, model string, call func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tries := opts.MaxTries
	if tries == 0 {
		tries = 1
	}

	b := backoff.NewExponentialBackOff()
	if opts.RetryInterval > 0 {
		b.InitialInterval = opts.RetryInterval
	}

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		out, err := call(ctx)
		if err == nil {
			return out, nil
		}

		var zero T
		var network *gateway.NetworkError
		if !errors.As(err, &network) {
			return zero, backoff.Permanent(err)
		}
		if uint(attempt) < tries {
			slog.Warn("Retrying model call", "model", model, "attempt", attempt, "error", err)
		}
		return zero, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}
