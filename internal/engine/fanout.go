package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Leg is one independent unit of a fan-out. Key identifies the recipient in
// results and logs.
type Leg struct {
	Key string
	Run func(ctx context.Context) error
}

// LegResult is the outcome of one leg.
type LegResult struct {
	Key      string
	Err      error
	Duration time.Duration
}

// FanOutResult collects every leg's outcome, in the order the legs were given.
type FanOutResult struct {
	RunID string
	Legs  []LegResult
}

// Succeeded returns the number of legs that finished without error.
func (r FanOutResult) Succeeded() int {
	n := 0
	for _, l := range r.Legs {
		if l.Err == nil {
			n++
		}
	}
	return n
}

// FirstError returns the first failed leg's error in leg order, or nil.
func (r FanOutResult) FirstError() error {
	for _, l := range r.Legs {
		if l.Err != nil {
			return l.Err
		}
	}
	return nil
}

// FanOutEngine runs legs concurrently. A failing leg never cancels its
// siblings; each leg only writes its own result slot.
type FanOutEngine struct {
	maxConcurrent int
	logger        *slog.Logger
}

// NewFanOutEngine creates an engine running at most maxConcurrent legs at
// once. maxConcurrent <= 0 means no limit.
func NewFanOutEngine(maxConcurrent int, logger *slog.Logger) *FanOutEngine {
	return &FanOutEngine{maxConcurrent: maxConcurrent, logger: logger}
}

// FanOut runs all legs and waits for them to finish.
func (f *FanOutEngine) FanOut(ctx context.Context, legs []Leg) FanOutResult {
	result := FanOutResult{
		RunID: uuid.NewString(),
		Legs:  make([]LegResult, len(legs)),
	}

	var g errgroup.Group
	if f.maxConcurrent > 0 {
		g.SetLimit(f.maxConcurrent)
	}

	for i, leg := range legs {
		i, leg := i, leg
		g.Go(func() error {
			start := time.Now()
			err := runLeg(ctx, leg)
			result.Legs[i] = LegResult{Key: leg.Key, Err: err, Duration: time.Since(start)}
			return nil
		})
	}
	g.Wait()

	f.logger.Info("fan-out complete",
		"run_id", result.RunID,
		"legs", len(legs),
		"succeeded", result.Succeeded(),
	)

	return result
}

func runLeg(ctx context.Context, leg Leg) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("leg %s panicked: %v", leg.Key, r)
		}
	}()
	return leg.Run(ctx)
}
