package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"codeberg.org/lexiread/lexiread/internal/errs"
)

// OnRetryFunc is invoked before each retry attempt with the attempt number
// just failed (1-based), the normalized error and the backoff delay chosen.
type OnRetryFunc func(attempt int, err *errs.Error, delay time.Duration)

// Retrier executes operations with exponential backoff. The zero value is
// not usable; construct with New or fill all fields.
type Retrier struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	OnRetry    OnRetryFunc
	Logger     zerolog.Logger
}

// New returns a Retrier with the default policy: 3 attempts starting at one
// second, capped at 30 seconds.
func New() *Retrier {
	return &Retrier{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Logger:     zerolog.Nop(),
	}
}

// Do runs op until it succeeds, fails with a non-retryable error, or
// exhausts all attempts. Failures are normalized through errs.Classify;
// non-retryable errors fail immediately without invoking OnRetry. The error
// returned after exhaustion carries the attempt count in its user message.
func Do[T any](ctx context.Context, r *Retrier, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr *errs.Error

	// A hand-filled Retrier may leave MaxRetries at zero; the operation
	// still runs once.
	attempts := r.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = errs.Classify(err)
		if !lastErr.Retryable {
			return zero, lastErr
		}
		if attempt == attempts {
			break
		}

		delay := r.backoff(attempt)
		r.Logger.Debug().
			Str("operation", label).
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("kind", string(lastErr.Kind)).
			Msg("retrying after failure")
		if r.OnRetry != nil {
			r.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, errs.Classify(ctx.Err())
		}
	}

	final := *lastErr
	final.UserMessage = exhaustedMessage(attempts, lastErr.UserMessage)
	return zero, &final
}

// backoff returns min(MaxDelay, BaseDelay*2^(attempt-1)) with ±20% jitter.
func (r *Retrier) backoff(attempt int) time.Duration {
	delay := r.BaseDelay << (attempt - 1)
	if delay > r.MaxDelay || delay <= 0 {
		delay = r.MaxDelay
	}
	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(delay) * jitter)
}

func exhaustedMessage(attempts int, userMessage string) string {
	msg := fmt.Sprintf("Failed after %d attempts.", attempts)
	if userMessage != "" {
		msg += " " + userMessage
	}
	return msg
}
