package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreaker tracks failing counterpart data sources in Redis so that a
// counterpart whose endpoints keep failing stops receiving contract legs for
// a cooldown period.
//
// - Closed: legs are forwarded, failures are counted.
// - Open: legs fail immediately. Becomes half-open after the cooldown.
// - Half-Open: legs are forwarded again. Success closes, failure re-opens.
type CircuitBreaker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
	cooldownPeriod   time.Duration
}

// CircuitBreakerState is the externally visible state of one counterpart.
type CircuitBreakerState struct {
	State        string `json:"state"`
	Failures     int    `json:"failures"`
	LastFailedAt string `json:"last_failed_at,omitempty"`
}

// NewCircuitBreaker opens a counterpart's circuit after failureThreshold
// consecutive failed legs and keeps it open for cooldown. Non-positive
// values fall back to 5 failures and 30 seconds.
func NewCircuitBreaker(redisClient *redis.Client, failureThreshold int, cooldown time.Duration, logger *slog.Logger) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: failureThreshold,
		cooldownPeriod:   cooldown,
	}
}

// CounterpartKey names the breaker of a counterpart's data source.
func CounterpartKey(dataSourceID int64) string {
	return fmt.Sprintf("datasource:%d", dataSourceID)
}

func cbKey(counterpart string) string {
	return fmt.Sprintf("cb:%s", counterpart)
}

// AllowRequest reports the counterpart's state and whether a leg may proceed.
func (cb *CircuitBreaker) AllowRequest(ctx context.Context, counterpart string) (string, bool) {
	key := cbKey(counterpart)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		// no state yet
		return StateClosed, true
	}

	state := data["state"]
	lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)

	switch state {
	case StateOpen:
		if time.Now().Unix()-lastFailedAt >= int64(cb.cooldownPeriod.Seconds()) {
			cb.redisClient.HSet(ctx, key, "state", StateHalfOpen)
			cb.logger.Info("circuit breaker half-open",
				"counterpart", counterpart,
			)
			return StateHalfOpen, true
		}
		return StateOpen, false

	case StateHalfOpen:
		return StateHalfOpen, true

	default:
		return StateClosed, true
	}
}

// RecordSuccess closes the counterpart's circuit.
func (cb *CircuitBreaker) RecordSuccess(ctx context.Context, counterpart string) {
	key := cbKey(counterpart)

	state, _ := cb.redisClient.HGet(ctx, key, "state").Result()

	cb.redisClient.HSet(ctx, key,
		"state", StateClosed,
		"failures", 0,
	)

	if state == StateHalfOpen {
		cb.logger.Info("circuit breaker closed (recovered)",
			"counterpart", counterpart,
		)
	}
}

// RecordFailure counts a failed leg and opens the circuit at the threshold.
func (cb *CircuitBreaker) RecordFailure(ctx context.Context, counterpart string) {
	key := cbKey(counterpart)

	var (
		failures *redis.IntCmd
		state    *redis.StringCmd
	)
	_, err := cb.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		failures = pipe.HIncrBy(ctx, key, "failures", 1)
		pipe.HSet(ctx, key, "last_failed_at", time.Now().Unix())
		state = pipe.HGet(ctx, key, "state")
		return nil
	})
	if err != nil && err != redis.Nil {
		cb.logger.Error("failed to record circuit breaker failure", "error", err, "counterpart", counterpart)
		return
	}

	switch {
	case state.Val() == StateHalfOpen:
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("circuit breaker re-opened (half-open leg failed)",
			"counterpart", counterpart,
		)
	case failures.Val() >= int64(cb.failureThreshold):
		cb.redisClient.HSet(ctx, key, "state", StateOpen)
		cb.logger.Warn("circuit breaker opened",
			"counterpart", counterpart,
			"failures", failures.Val(),
			"threshold", cb.failureThreshold,
		)
	case state.Val() == "":
		cb.redisClient.HSet(ctx, key, "state", StateClosed)
	}
}

// Reset forgets everything about the counterpart, e.g. after it registered
// new endpoints.
func (cb *CircuitBreaker) Reset(ctx context.Context, counterpart string) {
	if err := cb.redisClient.Del(ctx, cbKey(counterpart)).Err(); err != nil {
		cb.logger.Error("failed to reset circuit breaker", "error", err, "counterpart", counterpart)
	}
}

// GetState returns the counterpart's state without changing it.
func (cb *CircuitBreaker) GetState(ctx context.Context, counterpart string) CircuitBreakerState {
	key := cbKey(counterpart)

	data, err := cb.redisClient.HGetAll(ctx, key).Result()
	if err != nil || len(data) == 0 {
		return CircuitBreakerState{State: StateClosed, Failures: 0}
	}

	failures, _ := strconv.Atoi(data["failures"])
	state := data["state"]
	if state == "" {
		state = StateClosed
	}

	if state == StateOpen {
		lastFailedAt, _ := strconv.ParseInt(data["last_failed_at"], 10, 64)
		if time.Now().Unix()-lastFailedAt >= int64(cb.cooldownPeriod.Seconds()) {
			state = StateHalfOpen
		}
	}

	result := CircuitBreakerState{
		State:    state,
		Failures: failures,
	}

	if ts, ok := data["last_failed_at"]; ok && ts != "" {
		lastFailed, _ := strconv.ParseInt(ts, 10, 64)
		if lastFailed > 0 {
			result.LastFailedAt = time.Unix(lastFailed, 0).Format(time.RFC3339)
		}
	}

	return result
}
