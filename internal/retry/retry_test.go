package retry

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"codeberg.org/lexiread/lexiread/internal/errs"
)

func testRetrier() *Retrier {
	r := New()
	r.BaseDelay = 10 * time.Millisecond
	r.MaxDelay = 100 * time.Millisecond
	return r
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	r := testRetrier()
	calls := 0

	result, err := Do(context.Background(), r, "op", func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != "ok" {
		t.Errorf("Result = %s, want ok", result)
	}
	if calls != 1 {
		t.Errorf("Operation called %d times, want 1", calls)
	}
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	r := testRetrier()
	retries := 0
	r.OnRetry = func(attempt int, err *errs.Error, delay time.Duration) {
		retries++
	}

	calls := 0
	start := time.Now()
	result, err := Do(context.Background(), r, "op", func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errs.New(errs.KindNetwork, "flaky", true)
		}
		return 42, nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if result != 42 {
		t.Errorf("Result = %d, want 42", result)
	}
	if calls != 3 {
		t.Errorf("Operation called %d times, want 3", calls)
	}
	if retries != 2 {
		t.Errorf("OnRetry called %d times, want 2", retries)
	}
	// Two waits: base and 2*base, each jittered down to at most -20%.
	floor := time.Duration(float64(r.BaseDelay+2*r.BaseDelay) * 0.8)
	if elapsed < floor {
		t.Errorf("Elapsed %v below backoff floor %v", elapsed, floor)
	}
}

func TestDo_NonRetryableFailsFast(t *testing.T) {
	r := testRetrier()
	retries := 0
	r.OnRetry = func(attempt int, err *errs.Error, delay time.Duration) {
		retries++
	}

	calls := 0
	_, err := Do(context.Background(), r, "op", func(ctx context.Context) (string, error) {
		calls++
		return "", errs.New(errs.KindInvalidAPIKey, "rejected", false)
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Operation called %d times, want 1", calls)
	}
	if retries != 0 {
		t.Errorf("OnRetry called %d times, want 0", retries)
	}

	var typed *errs.Error
	if !errors.As(err, &typed) || typed.Kind != errs.KindInvalidAPIKey {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestDo_Exhaustion(t *testing.T) {
	r := testRetrier()

	calls := 0
	_, err := Do(context.Background(), r, "op", func(ctx context.Context) (string, error) {
		calls++
		return "", errs.New(errs.KindAPIUnavailable, "down", true)
	})

	if err == nil {
		t.Fatal("Expected error after exhaustion")
	}
	if calls != r.MaxRetries {
		t.Errorf("Operation called %d times, want %d", calls, r.MaxRetries)
	}

	var typed *errs.Error
	if !errors.As(err, &typed) {
		t.Fatalf("Expected *errs.Error, got %T", err)
	}
	if !strings.Contains(typed.UserMessage, "Failed after 3 attempts") {
		t.Errorf("User message missing attempt count: %s", typed.UserMessage)
	}
	if typed.Kind != errs.KindAPIUnavailable {
		t.Errorf("Kind = %s, want %s", typed.Kind, errs.KindAPIUnavailable)
	}
}

func TestDo_ZeroValueRetrierRunsOnce(t *testing.T) {
	tests := []struct {
		name       string
		maxRetries int
	}{
		{"zero", 0},
		{"negative", -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Retrier{MaxRetries: tt.maxRetries, Logger: zerolog.Nop()}

			calls := 0
			_, err := Do(context.Background(), r, "op", func(ctx context.Context) (string, error) {
				calls++
				return "", errs.New(errs.KindNetwork, "flaky", true)
			})

			if err == nil {
				t.Fatal("Expected error")
			}
			if calls != 1 {
				t.Errorf("Operation called %d times, want 1", calls)
			}
			var typed *errs.Error
			if !errors.As(err, &typed) {
				t.Fatalf("Expected *errs.Error, got %T", err)
			}
			if !strings.Contains(typed.UserMessage, "Failed after 1 attempts") {
				t.Errorf("User message missing attempt count: %s", typed.UserMessage)
			}
		})
	}
}

func TestDo_UnknownErrorNotRetried(t *testing.T) {
	r := testRetrier()

	calls := 0
	_, err := Do(context.Background(), r, "op", func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("mystery failure")
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Unknown errors are non-retryable; operation called %d times", calls)
	}
}

func TestDo_ContextCancelDuringBackoff(t *testing.T) {
	r := testRetrier()
	r.BaseDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Do(ctx, r, "op", func(ctx context.Context) (string, error) {
		return "", errs.New(errs.KindNetwork, "flaky", true)
	})

	if err == nil {
		t.Fatal("Expected error")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Backoff did not honor cancellation, took %v", elapsed)
	}
}
