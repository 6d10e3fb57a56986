// Package errs defines the semantic error taxonomy of §7: sentinel errors
// each component wraps with context via fmt.Errorf("...: %w", err), so
// callers classify failures with errors.Is/errors.As instead of string
// matching (the teacher's internal/net/circuit distinguishes breaker states
// the same way — typed, not stringly).
package errs

import "errors"

var (
	// ErrConfiguration covers a missing config file or unreadable credentials.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvariantViolation covers re-submission of one-shot results and
	// similar "this must never happen" conditions.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrStateTransition covers an attempt to skip or repeat a forbidden
	// orchestrator transition.
	ErrStateTransition = errors.New("invalid state transition")
	// ErrVerificationFailure covers a mandatory structural check failing.
	ErrVerificationFailure = errors.New("verification failed")
	// ErrDataUnavailable covers an unsatisfiable data requirement.
	ErrDataUnavailable = errors.New("data requirement unavailable")
	// ErrCodeGenFailure covers no template matching and no usable LLM output.
	ErrCodeGenFailure = errors.New("code generation failed")
	// ErrBacktestRuntime covers the engine reporting a runtime error in
	// generated code.
	ErrBacktestRuntime = errors.New("backtest runtime error")
	// ErrEngineCrash covers the engine itself crashing.
	ErrEngineCrash = errors.New("engine crash")
	// ErrRateLimit covers the engine refusing to accept work.
	ErrRateLimit = errors.New("rate limited")
	// ErrTimeout covers a backtest exceeding its time budget.
	ErrTimeout = errors.New("backtest timed out")
	// ErrParse covers engine output that cannot be parsed into metrics.
	ErrParse = errors.New("could not parse backtest output")
)

// Wrap is a small convenience so call sites read like the teacher's
// fmt.Errorf("...: %w", err) idiom without repeating the sentinel twice.
func Wrap(sentinel error, msg string) error {
	return &wrapped{sentinel: sentinel, msg: msg}
}

type wrapped struct {
	sentinel error
	msg      string
}

func (w *wrapped) Error() string { return w.msg + ": " + w.sentinel.Error() }
func (w *wrapped) Unwrap() error { return w.sentinel }
