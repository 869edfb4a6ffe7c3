package schedule

import (
	"errors"
	"fmt"
)

// Error taxonomy (spec.md 7). Sentinel values follow the style of the
// teacher's core/vm/interpreter.go (ErrOutOfGas, ErrInvalidJump, ...): a
// package-level var wrapped with fmt.Errorf("%w: ...") at the call site so
// callers can errors.Is against the sentinel while still getting a
// descriptive message.
var (
	// ErrAllocationFailed signals resource exhaustion (taxonomy item 1).
	ErrAllocationFailed = errors.New("schedule: allocation failed")
	// ErrQuotaExceeded signals the configured iteration quota was exceeded
	// (taxonomy item 1, spec.md 5 "Cancellation & timeouts").
	ErrQuotaExceeded = errors.New("schedule: iteration quota exceeded")
	// ErrInvalidStaticJump signals a PUSH+JUMP(I) fusion target that is not
	// a valid JUMPDEST (taxonomy item 2, spec.md 4.5 resolution step 2).
	ErrInvalidStaticJump = errors.New("schedule: invalid static jump target")
)

// quotaError, invalidStaticJumpError and allocationError carry enough
// context for a Tracer or a log line
// without losing errors.Is compatibility with the sentinels above.

func quotaError(consumed, quota uint64) error {
	return fmt.Errorf("%w: consumed %d of %d", ErrQuotaExceeded, consumed, quota)
}

func invalidStaticJumpError(fromPC, targetPC uint64) error {
	return fmt.Errorf("%w: from pc %d to pc %d", ErrInvalidStaticJump, fromPC, targetPC)
}

func allocationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrAllocationFailed, reason)
}
