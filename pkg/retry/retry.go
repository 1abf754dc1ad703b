package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, back off and try again
)

type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration // zero means uncapped
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

type Classify func(err error) Action
type Operation[T any] func() (T, error)
type VoidOperation func() error

// AlwaysRetry treats every error except context cancellation as transient.
func AlwaysRetry(err error) Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Stop
	}
	return Retry
}

// StopOn retries everything except errors matching one of the given targets.
func StopOn(targets ...error) Classify {
	return func(err error) Action {
		for _, target := range targets {
			if errors.Is(err, target) {
				return Stop
			}
		}
		return AlwaysRetry(err)
	}
}

func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, errors.New("retry: MaxAttempts must be >= 1")
	}

	backoff := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		if classify(err) == Stop {
			return zero, &PermanentError{Err: err}
		}
		if attempt == p.MaxAttempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
			backoff *= 2
			if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
				backoff = p.MaxBackoff
			}
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

func DoVoid(ctx context.Context, p Policy, classify Classify, op VoidOperation) error {
	_, err := Do(ctx, p, classify, func() (struct{}, error) { return struct{}{}, op() })
	return err
}

type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
