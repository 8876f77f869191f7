package utils

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoAttempts is returned by FirstSuccess when the chain is empty.
var ErrNoAttempts = errors.New("fallback chain has no attempts")

// Attempt is one step in an ordered fallback chain.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// FirstSuccess runs attempts in order and returns the first successful value
// together with the name of the attempt that produced it. Each attempt gets its
// own timeout when perAttempt > 0. On exhaustion the joined errors are returned.
func FirstSuccess[T any](ctx context.Context, perAttempt time.Duration, attempts ...Attempt[T]) (T, string, error) {
	var zero T
	if len(attempts) == 0 {
		return zero, "", ErrNoAttempts
	}

	var errs []error
	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		v, err := runAttempt(ctx, perAttempt, a)
		if err == nil {
			return v, a.Name, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
	}
	return zero, "", errors.Join(errs...)
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, a Attempt[T]) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.Run(ctx)
}
