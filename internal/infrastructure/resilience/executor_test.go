package resilience

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestExecuteRetriesUnavailableModelServer(t *testing.T) {
	exec := NewExecutor(Config{Retry: fastRetry(3)})

	attempts := 0
	err := exec.Execute(context.Background(), "inference.infer", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &HTTPStatusError{Service: "inference", StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	}, ClassifyHTTPError)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryRejectedRequest(t *testing.T) {
	exec := NewExecutor(Config{Retry: fastRetry(3)})

	attempts := 0
	rejected := &HTTPStatusError{Service: "tavily", StatusCode: http.StatusUnauthorized}
	err := exec.Execute(context.Background(), "tavily.search", func(context.Context) error {
		attempts++
		return rejected
	}, ClassifyHTTPError)
	if !errors.Is(err, rejected) {
		t.Fatalf("expected the 401 error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteGivesUpWhenBackoffOutlivesDeadline(t *testing.T) {
	exec := NewExecutor(Config{Retry: RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Second,
		Multiplier:     1,
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	attempts := 0
	start := time.Now()
	err := exec.Execute(ctx, "ollama.chat", func(context.Context) error {
		attempts++
		return &HTTPStatusError{StatusCode: http.StatusBadGateway}
	}, ClassifyHTTPError)
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("executor slept past the deadline")
	}
}

func TestRetryWaitHonorsRetryAfter(t *testing.T) {
	exec := NewExecutor(Config{Retry: RetryPolicy{
		MaxAttempts:    2,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     3 * time.Second,
		Multiplier:     2,
	}})

	throttled := &HTTPStatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: 2 * time.Second}
	if got := exec.retryWait(throttled, 1); got != 2*time.Second {
		t.Fatalf("expected Retry-After wait, got %v", got)
	}
	tooLong := &HTTPStatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: time.Minute}
	if got := exec.retryWait(tooLong, 1); got != 3*time.Second {
		t.Fatalf("expected wait capped at max backoff, got %v", got)
	}
}

func TestRetryPolicyBackoffGrowsToCap(t *testing.T) {
	p := RetryPolicy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 350 * time.Millisecond, Multiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if got := p.Backoff(i + 1); got != w {
			t.Fatalf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestBreakerIsSharedPerService(t *testing.T) {
	exec := NewExecutor(Config{
		Retry: fastRetry(1),
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      2,
			FailureRatio:     0.5,
			OpenTimeout:      time.Minute,
			HalfOpenMaxCalls: 1,
		},
	})

	down := errors.New("connection refused")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "ollama.chat", func(context.Context) error {
			return down
		}, nil)
		if !errors.Is(err, down) {
			t.Fatalf("expected upstream error on iteration %d, got %v", i, err)
		}
	}
	err := exec.Execute(context.Background(), "ollama.embed", func(context.Context) error {
		t.Fatalf("breaker is open for the whole service and must not call embed")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}

	calls := 0
	err = exec.Execute(context.Background(), "tavily.search", func(context.Context) error {
		calls++
		return nil
	}, nil)
	if err != nil || calls != 1 {
		t.Fatalf("other services keep their own breaker, got err=%v calls=%d", err, calls)
	}
}
