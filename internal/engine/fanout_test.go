package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFanOut_CollectsResultsInLegOrder(t *testing.T) {
	f := NewFanOutEngine(0, testLogger())
	boom := errors.New("boom")

	legs := []Leg{
		{Key: "a", Run: func(ctx context.Context) error { time.Sleep(20 * time.Millisecond); return nil }},
		{Key: "b", Run: func(ctx context.Context) error { return boom }},
		{Key: "c", Run: func(ctx context.Context) error { return nil }},
	}

	result := f.FanOut(context.Background(), legs)

	if len(result.Legs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(result.Legs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if result.Legs[i].Key != want {
			t.Errorf("result %d: expected key %s, got %s", i, want, result.Legs[i].Key)
		}
	}
	if !errors.Is(result.Legs[1].Err, boom) {
		t.Errorf("expected leg b to fail with boom, got %v", result.Legs[1].Err)
	}
	if result.Succeeded() != 2 {
		t.Errorf("expected 2 successes, got %d", result.Succeeded())
	}
	if !errors.Is(result.FirstError(), boom) {
		t.Errorf("expected first error boom, got %v", result.FirstError())
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestFanOut_FailureDoesNotCancelSiblings(t *testing.T) {
	f := NewFanOutEngine(0, testLogger())
	var finished atomic.Int32

	legs := []Leg{
		{Key: "fail", Run: func(ctx context.Context) error { return errors.New("fail fast") }},
		{Key: "slow", Run: func(ctx context.Context) error {
			select {
			case <-time.After(50 * time.Millisecond):
				finished.Add(1)
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}},
	}

	result := f.FanOut(context.Background(), legs)

	if finished.Load() != 1 {
		t.Error("slow leg should have completed despite the failing sibling")
	}
	if result.Legs[1].Err != nil {
		t.Errorf("slow leg should succeed, got %v", result.Legs[1].Err)
	}
}

func TestFanOut_RespectsConcurrencyLimit(t *testing.T) {
	f := NewFanOutEngine(2, testLogger())
	var current, peak atomic.Int32

	legs := make([]Leg, 6)
	for i := range legs {
		legs[i] = Leg{Key: "leg", Run: func(ctx context.Context) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return nil
		}}
	}

	f.FanOut(context.Background(), legs)

	if peak.Load() > 2 {
		t.Errorf("expected at most 2 concurrent legs, saw %d", peak.Load())
	}
}

func TestFanOut_PanicBecomesLegError(t *testing.T) {
	f := NewFanOutEngine(0, testLogger())

	result := f.FanOut(context.Background(), []Leg{
		{Key: "p", Run: func(ctx context.Context) error { panic("kaboom") }},
		{Key: "ok", Run: func(ctx context.Context) error { return nil }},
	})

	if result.Legs[0].Err == nil {
		t.Error("expected panic to surface as an error")
	}
	if result.Legs[1].Err != nil {
		t.Errorf("sibling should succeed, got %v", result.Legs[1].Err)
	}
}

func TestFanOut_NoLegs(t *testing.T) {
	result := NewFanOutEngine(4, testLogger()).FanOut(context.Background(), nil)
	if len(result.Legs) != 0 || result.FirstError() != nil {
		t.Errorf("unexpected result for no legs: %+v", result)
	}
}
