// ABOUTME: Tests for bounded fan-out: concurrency ceiling, result ordering,
// ABOUTME: failure isolation, panic recovery, and cancellation behavior.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFanOutPreservesOrder(t *testing.T) {
	units := make([]func(context.Context) (int, error), 20)
	for i := range units {
		i := i
		units[i] = func(context.Context) (int, error) {
			// Later units finish first so completion order differs from
			// submission order.
			time.Sleep(time.Duration(20-i) * time.Millisecond)
			return i * 10, nil
		}
	}

	results := FanOut(context.Background(), 5, units)
	if len(results) != 20 {
		t.Fatalf("got %d results, want 20", len(results))
	}
	for i, r := range results {
		if r.Failed() {
			t.Fatalf("unit %d failed: %v", i, r.Err)
		}
		if r.Value != i*10 {
			t.Errorf("results[%d] = %d, want %d", i, r.Value, i*10)
		}
	}
}

func TestFanOutRespectsLimit(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32
	var mu sync.Mutex

	units := make([]func(context.Context) (struct{}, error), 12)
	for i := range units {
		units[i] = func(context.Context) (struct{}, error) {
			n := inFlight.Add(1)
			mu.Lock()
			if n > peak.Load() {
				peak.Store(n)
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return struct{}{}, nil
		}
	}

	FanOut(context.Background(), limit, units)

	if p := peak.Load(); p > limit {
		t.Errorf("peak concurrency %d exceeded limit %d", p, limit)
	}
}

func TestFanOutIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	units := []func(context.Context) (string, error){
		func(context.Context) (string, error) { return "a", nil },
		func(context.Context) (string, error) { return "", boom },
		func(context.Context) (string, error) { return "c", nil },
	}

	results := FanOut(context.Background(), 2, units)

	if results[0].Failed() || results[0].Value != "a" {
		t.Errorf("results[0] = %+v, want a", results[0])
	}
	if !results[1].Failed() || !errors.Is(results[1].Err, boom) {
		t.Errorf("results[1].Err = %v, want boom", results[1].Err)
	}
	if results[2].Failed() || results[2].Value != "c" {
		t.Errorf("results[2] = %+v, want c", results[2])
	}
}

func TestFanOutRecoversPanics(t *testing.T) {
	units := []func(context.Context) (int, error){
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { panic("kaboom") },
	}

	results := FanOut(context.Background(), 5, units)

	if results[0].Failed() {
		t.Errorf("results[0].Err = %v, want nil", results[0].Err)
	}
	if !results[1].Failed() {
		t.Fatal("panicking unit should yield a failure result")
	}
	if want := "unit 1 panicked"; !strings.Contains(results[1].Err.Error(), want) {
		t.Errorf("err = %q, want it to mention %q", results[1].Err, want)
	}
}

func TestFanOutCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	units := make([]func(context.Context) (int, error), 4)
	for i := range units {
		units[i] = func(context.Context) (int, error) {
			// Hold the slot long enough that later units find the
			// semaphore full and take the cancellation path.
			time.Sleep(50 * time.Millisecond)
			return 0, nil
		}
	}

	results := FanOut(ctx, 2, units)

	// With the context already cancelled and the semaphore free, the first
	// units may still be admitted; the rest must fail with the context error.
	failed := 0
	for _, r := range results {
		if r.Failed() && errors.Is(r.Err, context.Canceled) {
			failed++
		}
	}
	if failed == 0 {
		t.Error("expected at least one unit to fail with context.Canceled")
	}
	if len(results) != 4 {
		t.Errorf("got %d results, want 4", len(results))
	}
}

func TestFanOutZeroLimitUsesDefault(t *testing.T) {
	units := []func(context.Context) (int, error){
		func(context.Context) (int, error) { return 7, nil },
	}
	results := FanOut(context.Background(), 0, units)
	if results[0].Failed() || results[0].Value != 7 {
		t.Errorf("results[0] = %+v, want 7", results[0])
	}
}

func TestFanOutEmptyInput(t *testing.T) {
	results := FanOut[int](context.Background(), 5, nil)
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}
