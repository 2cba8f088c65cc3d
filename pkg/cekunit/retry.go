package cekunit

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"syscall"
	"time"

	"github.com/cekunit/cekunit/pkg/logger"
)

// Default retry configuration values
const (
	DEF_MAX_ATTEMPTS   = 3
	DEF_BASE_DELAY     = 100 * time.Millisecond
	DEF_MAX_DELAY      = 5 * time.Second
	DEF_JITTER_FACTOR  = 0.0
	DEF_BACKOFF_FACTOR = 2.0
)

// Outcome classifies the result of one attempt.
type Outcome int

const (
	Success  Outcome = iota // stop and return the value
	Retry                   // transient, try again while budget remains
	Terminal                // stop and return the error
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retry:
		return "retry"
	case Terminal:
		return "terminal"
	}
	return "unknown"
}

// RetryConfig holds configuration for retry behavior
type RetryConfig struct {
	MaxAttempts   int           // Total attempts including the first one
	BaseDelay     time.Duration // Delay after the first failed attempt
	MaxDelay      time.Duration // Maximum delay between attempts
	JitterFactor  float64       // Random jitter factor (0-1)
	BackoffFactor float64       // Exponential backoff multiplier

	// Sleep waits between attempts. nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryConfig returns 3 attempts with 100ms and 200ms pauses.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   DEF_MAX_ATTEMPTS,
		BaseDelay:     DEF_BASE_DELAY,
		MaxDelay:      DEF_MAX_DELAY,
		JitterFactor:  DEF_JITTER_FACTOR,
		BackoffFactor: DEF_BACKOFF_FACTOR,
	}
}

// RetryState tracks the state of retry attempts
type RetryState struct {
	Attempts     int           // Number of attempts made
	LastError    error         // Most recent error encountered
	TotalDelayed time.Duration // Cumulative time spent waiting between retries
}

// CalculateBackoff returns the pause after the given failed attempt:
// BaseDelay * BackoffFactor^(attempt-1), jittered and capped at MaxDelay.
func (c *RetryConfig) CalculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := c.BackoffFactor
	if factor <= 0 {
		factor = DEF_BACKOFF_FACTOR
	}
	delay := float64(c.BaseDelay) * math.Pow(factor, float64(attempt-1))

	// Apply jitter: delay * (1 + jitterFactor * random(-1, 1))
	if c.JitterFactor > 0 {
		jitter := c.JitterFactor * (2*rand.Float64() - 1)
		delay *= (1 + jitter)
	}
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if delay < 0 {
		delay = float64(c.BaseDelay)
	}
	return time.Duration(delay)
}

func (c *RetryConfig) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WithRetry runs op until it reports Success or Terminal, or until MaxAttempts
// attempts reported Retry. On exhaustion the error of the last attempt is
// returned. attempt is 1-based.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, log logger.Logger, op func(ctx context.Context, attempt int) (T, Outcome, error)) (T, RetryState, error) {
	var zero T
	var state RetryState
	if log == nil {
		log = logger.NewNopLogger()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for {
		state.Attempts++
		v, outcome, err := op(ctx, state.Attempts)
		switch outcome {
		case Success:
			return v, state, nil
		case Terminal:
			state.LastError = err
			return zero, state, err
		}

		state.LastError = err
		if state.Attempts >= maxAttempts {
			log.Warning("Giving up after %d attempts: %v", state.Attempts, err)
			return zero, state, err
		}
		delay := cfg.CalculateBackoff(state.Attempts)
		log.Warning("Retry attempt %d/%d in %v: %v", state.Attempts+1, maxAttempts, delay, err)
		if serr := cfg.sleep(ctx, delay); serr != nil {
			return zero, state, interrupted(serr, err)
		}
		state.TotalDelayed += delay
	}
}

// ClassifyStatus maps an HTTP status to an Outcome for requests whose only
// retryable failures are server errors. 2xx-4xx pass through as Terminal
// so callers decide success themselves.
func ClassifyStatus(code int) Outcome {
	if code >= 500 && code <= 599 {
		return Retry
	}
	return Terminal
}

// ClassifyError decides whether a failed round trip is worth another attempt.
func ClassifyError(err error) Outcome {
	if err == nil {
		return Success
	}

	// Cancellation by the caller is final; per-call deadlines are not.
	if errors.Is(err, context.Canceled) {
		return Terminal
	}

	var e *Error
	if errors.As(err, &e) && e.Kind.Class() == ClassTransport {
		return Retry
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Retry
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Retry
	}
	var sysErr syscall.Errno
	if errors.As(err, &sysErr) && isRetryableErrno(sysErr) {
		return Retry
	}
	return Terminal
}

func isRetryableErrno(errno syscall.Errno) bool {
	switch errno {
	case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED,
		syscall.EPIPE, syscall.ETIMEDOUT:
		return true
	}
	return false
}
