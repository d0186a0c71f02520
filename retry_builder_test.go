package stepgate

import (
	"testing"
	"time"
)

func TestRetryDefaultsToSingleAttempt(t *testing.T) {
	p := Retry(0).Policy()
	if p.MaxAttempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", p.MaxAttempts)
	}
	if p.Backoff(1) != 0 {
		t.Fatalf("expected zero backoff by default")
	}
}

func TestRetryExponentialBackoff(t *testing.T) {
	p := Retry(4).WithExponentialBackoff(100*time.Millisecond, 2.0, 350*time.Millisecond).Policy()

	if got := p.Backoff(1); got != 100*time.Millisecond {
		t.Fatalf("attempt 1: got %v", got)
	}
	if got := p.Backoff(2); got != 200*time.Millisecond {
		t.Fatalf("attempt 2: got %v", got)
	}
	// The cap applies from attempt 3 on.
	if got := p.Backoff(3); got != 350*time.Millisecond {
		t.Fatalf("attempt 3: got %v", got)
	}
	if got := p.Backoff(4); got != 350*time.Millisecond {
		t.Fatalf("attempt 4: got %v", got)
	}
}

func TestRetryConstantBackoff(t *testing.T) {
	p := Retry(3).WithConstantBackoff(50 * time.Millisecond).Policy()

	for n := 1; n <= 3; n++ {
		if got := p.Backoff(n); got != 50*time.Millisecond {
			t.Fatalf("attempt %d: got %v", n, got)
		}
	}
}

func TestRetryImmediate(t *testing.T) {
	p := Retry(3).WithConstantBackoff(time.Second).Immediate().Policy()

	if got := p.Backoff(2); got != 0 {
		t.Fatalf("expected no sleep, got %v", got)
	}
	if p.MaxAttempts != 3 {
		t.Fatalf("Immediate must keep MaxAttempts, got %d", p.MaxAttempts)
	}
}
