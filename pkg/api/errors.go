package api

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStepIncomplete is returned by Advance when the departing step's
	// completion predicate does not hold.
	ErrStepIncomplete = errors.New("step is not complete")

	// ErrUploadsOutstanding is returned by Advance when documents are
	// still uploading for the departing step.
	ErrUploadsOutstanding = errors.New("document uploads still in progress")

	// ErrUnknownStep is returned when an ordinal is outside the graph.
	ErrUnknownStep = errors.New("unknown step")
)

// PrerequisiteError wraps a failure of a hard downstream prerequisite
// (account creation, checkout-session creation). It is the one error class
// that halts forward navigation and must be surfaced to the user as a
// retryable message.
type PrerequisiteError struct {
	// Op names the failed prerequisite: "account-create" or
	// "checkout-session".
	Op  string
	Err error
}

func (e *PrerequisiteError) Error() string {
	return fmt.Sprintf("%s prerequisite failed: %v", e.Op, e.Err)
}

func (e *PrerequisiteError) Unwrap() error { return e.Err }

// IsPrerequisiteFailure reports whether err is a PrerequisiteError and
// returns it when so.
func IsPrerequisiteFailure(err error) (*PrerequisiteError, bool) {
	var pe *PrerequisiteError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// RetryPolicy controls how a hard-prerequisite call is retried when it
// returns an error. MaxAttempts includes the first attempt:
//
//	MaxAttempts = 1 => no retries (just the initial call)
//	MaxAttempts = 3 => initial call + up to 2 retries
type RetryPolicy struct {
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// BackoffMultiplier grows the delay each attempt; values <= 0 are
	// treated as 2.0.
	BackoffMultiplier float64

	// MaxBackoff caps the delay; if <= 0, there is no cap.
	MaxBackoff time.Duration
}

// Backoff returns the delay to apply before retry attempt n (1-based count
// of retries already performed).
func (p RetryPolicy) Backoff(n int) time.Duration {
	if p.InitialBackoff <= 0 || n < 1 {
		return 0
	}
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 2.0
	}
	d := p.InitialBackoff
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * mult)
		if p.MaxBackoff > 0 && d > p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}
