// Package resilience provides resilience patterns for LLM calls: bounded
// retry with exponential backoff and a cumulative failure gate.
package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// RetryConfig configures RetryWithBackoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first call.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff factor.
	Multiplier float64
	// RetryableErrors reports whether an error is worth retrying.
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 4 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		RetryableErrors: func(err error) bool {
			return true
		},
	}
}

// RetryWithBackoff runs fn until it succeeds, the attempt budget is spent,
// or the context is cancelled. Delays grow exponentially up to MaxDelay.
func RetryWithBackoff(ctx context.Context, config *RetryConfig, fn func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			logger.Debugw("error is not retryable", "error", err.Error())
			return err
		}

		if attempt >= config.MaxAttempts {
			logger.Warnw("max retry attempts reached",
				"attempts", attempt,
				"error", err.Error(),
			)
			return fmt.Errorf("max retry attempts (%d) reached: %w", config.MaxAttempts, lastErr)
		}

		logger.Debugw("retrying after delay",
			"attempt", attempt,
			"delay", delay,
			"error", err.Error(),
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return lastErr
}

// FailureGate counts consecutive operation failures across calls. Once the
// count reaches the threshold the gate trips and stays tripped until a call
// succeeds and resets it. Unlike a circuit breaker it has no timeout based
// recovery: only success closes it.
type FailureGate struct {
	threshold int

	mu    sync.Mutex
	count int
}

// DefaultFailureThreshold is the failure count at which the gate trips.
const DefaultFailureThreshold = 5

// NewFailureGate creates a gate tripping at the given threshold. A
// non-positive threshold falls back to DefaultFailureThreshold.
func NewFailureGate(threshold int) *FailureGate {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return &FailureGate{threshold: threshold}
}

// Tripped reports whether the failure count has reached the threshold.
func (g *FailureGate) Tripped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count >= g.threshold
}

// RecordFailure increments the failure count and returns the new count.
func (g *FailureGate) RecordFailure() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	if g.count == g.threshold {
		logger.Warnw("failure gate tripped", "failures", g.count, "threshold", g.threshold)
	}
	return g.count
}

// RecordSuccess resets the failure count.
func (g *FailureGate) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.count > 0 {
		logger.Infow("failure gate reset", "failures", g.count)
	}
	g.count = 0
}

// Failures returns the current failure count.
func (g *FailureGate) Failures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Threshold returns the configured trip threshold.
func (g *FailureGate) Threshold() int {
	return g.threshold
}
