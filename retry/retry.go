package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the
	// initial one. Default: 3.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 500ms.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries. Default: 30s.
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts. Default: 2.0.
	Multiplier float64

	// Jitter adds up to 25% random variance to each delay.
	// Default: true (set NoJitter to disable).
	NoJitter bool

	// RetryIf reports whether an error is worth retrying. By default
	// every non-nil error is retried.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.RetryIf == nil {
		c.RetryIf = func(err error) bool { return err != nil }
	}
	return c
}

// Retrier runs operations with retry. The zero-value Config gives
// three attempts with exponential backoff.
type Retrier struct {
	cfg Config
}

// New returns a Retrier with defaults applied to cfg.
func New(cfg Config) *Retrier {
	return &Retrier{cfg: cfg.withDefaults()}
}

// Do runs op until it succeeds, the error is not retryable, attempts
// run out, or ctx is done. The last operation error is returned;
// context cancellation during a backoff wait returns the context error.
func (r *Retrier) Do(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.cfg.RetryIf(err) || attempt >= r.cfg.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func (r *Retrier) delay(attempt int) time.Duration {
	delay := time.Duration(float64(r.cfg.InitialDelay) * math.Pow(r.cfg.Multiplier, float64(attempt-1)))
	if delay > r.cfg.MaxDelay {
		delay = r.cfg.MaxDelay
	}
	if !r.cfg.NoJitter && delay > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int63n(int64(delay / 4)))
	}
	return delay
}
