package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		NoJitter:     true,
	}
}

func TestRetrier_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := New(fastConfig()).Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("persistent")
	attempts := 0
	err := New(fastConfig()).Do(context.Background(), func(context.Context) error {
		attempts++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want last operation error", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetrier_NonRetryableStopsEarly(t *testing.T) {
	fatal := errors.New("fatal")
	cfg := fastConfig()
	cfg.RetryIf = func(err error) bool { return !errors.Is(err, fatal) }

	attempts := 0
	err := New(cfg).Do(context.Background(), func(context.Context) error {
		attempts++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("err = %v, want fatal", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestRetrier_ContextCancelDuringBackoff(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: time.Hour,
		NoJitter:     true,
	}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- New(cfg).Do(ctx, func(context.Context) error {
			return errors.New("transient")
		})
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestRetrier_OnRetryObservesAttempts(t *testing.T) {
	var seen []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
	}

	_ = New(cfg).Do(context.Background(), func(context.Context) error {
		return errors.New("transient")
	})
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", seen)
	}
}
