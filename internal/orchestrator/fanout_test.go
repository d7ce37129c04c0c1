package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/lexiread/lexiread/internal/errs"
)

func TestOptimizeAPICallsPreservesOrder(t *testing.T) {
	// Later requests finish first; results must still come back in
	// submission order.
	requests := make([]func(ctx context.Context) (int, error), 5)
	for i := range requests {
		i := i
		requests[i] = func(ctx context.Context) (int, error) {
			time.Sleep(time.Duration(5-i) * 2 * time.Millisecond)
			return i, nil
		}
	}

	slots, err := OptimizeAPICalls(context.Background(), requests, FanoutOptions{MaxConcurrency: 2})
	if err != nil {
		t.Fatalf("Unexpected batch error: %v", err)
	}
	if len(slots) != 5 {
		t.Fatalf("Expected 5 slots, got %d", len(slots))
	}
	for i, slot := range slots {
		if slot.Err != nil {
			t.Errorf("Slot %d has unexpected error: %v", i, slot.Err)
		}
		if slot.Value != i {
			t.Errorf("Slot %d holds %d", i, slot.Value)
		}
	}
}

func TestOptimizeAPICallsToleratesFailures(t *testing.T) {
	requests := []func(ctx context.Context) (string, error){
		func(ctx context.Context) (string, error) { return "first", nil },
		func(ctx context.Context) (string, error) {
			return "", errs.New(errs.KindInvalidInput, "bad request", false)
		},
		func(ctx context.Context) (string, error) { return "third", nil },
	}

	slots, err := OptimizeAPICalls(context.Background(), requests, FanoutOptions{TolerateFailures: true})
	if err != nil {
		t.Fatalf("Tolerant batch must not fail: %v", err)
	}
	if slots[0].Value != "first" || slots[2].Value != "third" {
		t.Errorf("Sibling results corrupted: %q, %q", slots[0].Value, slots[2].Value)
	}
	if slots[1].Err == nil {
		t.Fatal("Expected failed slot to carry its error")
	}
	if slots[1].Err.Kind != errs.KindInvalidInput {
		t.Errorf("Expected invalid_input, got %s", slots[1].Err.Kind)
	}
}

func TestOptimizeAPICallsFailsFastWithoutTolerance(t *testing.T) {
	requests := []func(ctx context.Context) (string, error){
		func(ctx context.Context) (string, error) { return "ok", nil },
		func(ctx context.Context) (string, error) {
			return "", errs.New(errs.KindInvalidInput, "bad request", false)
		},
	}

	slots, err := OptimizeAPICalls(context.Background(), requests, FanoutOptions{})
	if err == nil {
		t.Fatal("Expected batch error without failure tolerance")
	}
	if slots != nil {
		t.Error("Expected no slots on batch failure")
	}
}

func TestOptimizeAPICallsRetriesTransientFailures(t *testing.T) {
	var calls int32
	requests := []func(ctx context.Context) (int, error){
		func(ctx context.Context) (int, error) {
			if atomic.AddInt32(&calls, 1) == 1 {
				return 0, errs.New(errs.KindNetwork, "connection reset", true)
			}
			return 42, nil
		},
	}

	opts := FanoutOptions{RetryAttempts: 2, RetryDelay: time.Millisecond}
	slots, err := OptimizeAPICalls(context.Background(), requests, opts)
	if err != nil {
		t.Fatalf("Expected recovery after retry: %v", err)
	}
	if slots[0].Value != 42 {
		t.Errorf("Expected 42, got %d", slots[0].Value)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
}

func TestOptimizeAPICallsEmpty(t *testing.T) {
	slots, err := OptimizeAPICalls[int](context.Background(), nil, FanoutOptions{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("Expected no slots, got %d", len(slots))
	}
}
