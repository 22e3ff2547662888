package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrAccountNotTracked means the caller skipped account initialization. It is
// a programmer error and is never retried.
var ErrAccountNotTracked = errors.New("account not tracked: initialize it first")

// ValidationError marks computed order geometry that must not be submitted.
// The affected side is abandoned for the cycle; there is nothing to retry.
type ValidationError struct {
	Symbol string
	Side   Side
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s order for %s: %s", e.Side, e.Symbol, e.Reason)
}

// TransientError wraps a gateway failure (timeout, network) that callers may
// retry with a bounded attempt count.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient gateway error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be treated as retryable: an explicit
// TransientError, a context deadline, or a net timeout.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
