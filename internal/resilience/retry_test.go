package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vishwa0198/earnings-call-analyzer/internal/resilience"
)

// fastRetry keeps test backoffs in the microsecond range.
func fastRetry(attempts int) resilience.Config {
	return resilience.Config{
		MaxAttempts:    attempts,
		InitialBackoff: time.Microsecond,
		MaxBackoff:     time.Millisecond,
	}
}

func TestDoWithResult_SucceedsAfterRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := resilience.DoWithResult(context.Background(), fastRetry(3), "op",
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("transient")
			}
			return "done", nil
		})

	if err != nil {
		t.Fatalf("DoWithResult: %v", err)
	}
	if got != "done" || calls != 3 {
		t.Errorf("result %q after %d calls", got, calls)
	}
}

func TestDoWithResult_FirstTrySkipsBackoff(t *testing.T) {
	t.Parallel()

	start := time.Now()
	_, err := resilience.DoWithResult(context.Background(), resilience.Config{}, "op",
		func(context.Context) (int, error) { return 42, nil })
	if err != nil {
		t.Fatalf("DoWithResult: %v", err)
	}
	// Default backoff is hundreds of milliseconds; success must not wait.
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("immediate success took %v", elapsed)
	}
}

func TestDoWithResult_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := resilience.DoWithResult(context.Background(), fastRetry(2), "op",
		func(context.Context) (string, error) {
			calls++
			return "", errors.New("persistent")
		})

	if !errors.Is(err, resilience.ErrAttemptsExhausted) {
		t.Errorf("err = %v, want ErrAttemptsExhausted", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
}

func TestDoWithResult_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := resilience.DoWithResult(ctx, fastRetry(3), "op",
		func(context.Context) (string, error) {
			calls++
			return "", errors.New("should not matter")
		})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("fn called %d times after cancellation, want 0", calls)
	}
}

// TestDoWithResult_AttemptTimeout verifies the per-attempt deadline reaches
// the operation's context.
func TestDoWithResult_AttemptTimeout(t *testing.T) {
	t.Parallel()

	cfg := fastRetry(1)
	cfg.Timeout = 5 * time.Millisecond

	_, err := resilience.DoWithResult(context.Background(), cfg, "op",
		func(ctx context.Context) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Second):
				return "too late", nil
			}
		})

	if !errors.Is(err, resilience.ErrAttemptsExhausted) {
		t.Errorf("err = %v, want exhaustion wrapping the deadline error", err)
	}
}

func TestDo_WrapsErrorlessOperations(t *testing.T) {
	t.Parallel()

	calls := 0
	err := resilience.Do(context.Background(), fastRetry(3), "op",
		func(context.Context) error {
			calls++
			return nil
		})
	if err != nil || calls != 1 {
		t.Errorf("err %v after %d calls", err, calls)
	}
}
