package orchestrator

import (
	"time"

	"github.com/extremevalue/quantvalid/internal/domain"
	"github.com/extremevalue/quantvalid/internal/errs"
	"github.com/extremevalue/quantvalid/internal/gateeval"
)

// Clock lets tests control timestamps; production code wires time.Now.
type Clock func() time.Time

// Orchestrator drives one candidate's StateRecord through the §4.8
// state machine. It holds no I/O dependencies itself — persistence is
// the caller's job (internal/persist), keeping the machine pure and
// easy to test.
type Orchestrator struct {
	now Clock
}

// New builds an Orchestrator using the real clock.
func New() *Orchestrator {
	return &Orchestrator{now: time.Now}
}

// NewWithClock builds an Orchestrator with an injected clock, for tests.
func NewWithClock(now Clock) *Orchestrator {
	return &Orchestrator{now: now}
}

// Start initializes a fresh StateRecord for a candidate.
func (o *Orchestrator) Start(candidateID string) *domain.StateRecord {
	now := o.now()
	return &domain.StateRecord{
		CandidateID:   candidateID,
		CurrentState:  domain.StateInitialized,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Transition appends one state move to the record's history after
// validating it against the exhaustive transition table.
func (o *Orchestrator) Transition(rec *domain.StateRecord, to domain.State, details string) error {
	if err := ValidateTransition(rec.CurrentState, to); err != nil {
		return err
	}
	now := o.now()
	rec.History = append(rec.History, domain.Transition{
		From: rec.CurrentState, To: to, Timestamp: now, Passed: true, Details: details,
	})
	rec.CurrentState = to
	rec.UpdatedAt = now
	return nil
}

// Fail records a failed transition attempt without moving CurrentState,
// for a StateTransitionError's own paper trail.
func (o *Orchestrator) Fail(rec *domain.StateRecord, attemptedTo domain.State, errMsg string) {
	now := o.now()
	rec.History = append(rec.History, domain.Transition{
		From: rec.CurrentState, To: attemptedTo, Timestamp: now, Passed: false, Error: errMsg,
	})
	rec.UpdatedAt = now
}

// LockHypothesis performs the hypothesis_locked transition and captures
// the immutable parameter bag in the same step.
func (o *Orchestrator) LockHypothesis(rec *domain.StateRecord, isWindow, oosWindow domain.WindowSpec, dataReqs []string, algoParams map[string]any) error {
	if err := o.Transition(rec, domain.StateHypothesisLocked, "hypothesis locked"); err != nil {
		return err
	}
	rec.Locked = domain.LockedParameters{
		ISWindow:         isWindow,
		OOSWindow:        oosWindow,
		DataRequirements: dataReqs,
		AlgoParameters:   algoParams,
		LockedAt:         o.now(),
	}
	return nil
}

// AddSanityFlags accumulates flags produced by inspecting a stage's
// artifacts; it never mutates CurrentState.
func (o *Orchestrator) AddSanityFlags(rec *domain.StateRecord, flags ...domain.SanityFlag) {
	rec.SanityFlags = append(rec.SanityFlags, flags...)
}

// SubmitISResults records the in-sample stage's sanity flags and the
// statistical-significance stage's verdict, moving through data_audit ->
// is_testing -> statistical -> regime in sequence (IS testing happens
// inside is_testing; this method assumes the caller is already in
// data_audit and advances through to regime once all IS-side checks
// finish, mirroring orchestrator.py's submit_is_results doing the same
// consolidated work in one call).
func (o *Orchestrator) SubmitISResults(rec *domain.StateRecord, statSignificant, regimeConsistent bool, flags []domain.SanityFlag) error {
	if err := o.Transition(rec, domain.StateISTesting, "in-sample results submitted"); err != nil {
		return err
	}
	o.AddSanityFlags(rec, flags...)
	if err := o.Transition(rec, domain.StateStatistical, "statistical significance evaluated"); err != nil {
		return err
	}
	rec.StatSignificant = statSignificant
	if err := o.Transition(rec, domain.StateRegime, "regime consistency evaluated"); err != nil {
		return err
	}
	rec.RegimeConsistent = regimeConsistent
	return nil
}

// SubmitOOSResults is the one-shot anti-p-hacking transition (§4.8, §8
// property 5): a second call on a record that already has OOSSubmitted
// set fails with an InvariantViolation and performs no write.
func (o *Orchestrator) SubmitOOSResults(rec *domain.StateRecord, flags []domain.SanityFlag) error {
	if rec.OOSSubmitted {
		return errs.Wrap(errs.ErrInvariantViolation, "OOS results already submitted for candidate "+rec.CandidateID)
	}
	if err := o.Transition(rec, domain.StateOOSTesting, "out-of-sample results submitted"); err != nil {
		return err
	}
	o.AddSanityFlags(rec, flags...)
	rec.OOSSubmitted = true
	return nil
}

// Determine applies §4.8's final-determination cascade and performs the
// determination transition. wf carries the walk-forward's own
// (possibly already-decided) determination; gates is the already-run C7
// evaluation, only meaningful when wf did not short-circuit.
func (o *Orchestrator) Determine(rec *domain.StateRecord, wf domain.WalkForward, gates domain.GateEvaluation) error {
	if err := o.Transition(rec, domain.StateDetermination, "final determination"); err != nil {
		return err
	}

	rec.Determination, rec.DeterminationReason = cascade(wf, gates, rec)
	return nil
}

// Complete performs the terminal completed transition once the
// determination has been recorded.
func (o *Orchestrator) Complete(rec *domain.StateRecord) error {
	return o.Transition(rec, domain.StateCompleted, "run completed")
}

// Block performs the blocked side-track transition.
func (o *Orchestrator) Block(rec *domain.StateRecord, reason string) error {
	if err := o.Transition(rec, domain.StateBlocked, reason); err != nil {
		return err
	}
	rec.Determination = domain.DeterminationBlocked
	rec.DeterminationReason = reason
	return nil
}

// FailRun performs the failed side-track transition for an unrecoverable
// system error.
func (o *Orchestrator) FailRun(rec *domain.StateRecord, reason string) error {
	if err := o.Transition(rec, domain.StateFailed, reason); err != nil {
		return err
	}
	rec.Determination = domain.DeterminationFailed
	rec.DeterminationReason = reason
	return nil
}

// cascade implements §4.8's final-determination rule in its documented
// priority order.
func cascade(wf domain.WalkForward, gates domain.GateEvaluation, rec *domain.StateRecord) (domain.Determination, string) {
	if wf.Determination == domain.DeterminationBlocked {
		return domain.DeterminationBlocked, wf.DeterminationReason
	}
	if wf.Determination == domain.DeterminationRetryLater {
		return domain.DeterminationRetryLater, wf.DeterminationReason
	}
	if !gates.AllPassed {
		return domain.DeterminationInvalidated, "one or more gates failed"
	}
	if rec.HasCriticalFlag() {
		return domain.DeterminationInvalidated, "a critical sanity flag was raised"
	}
	if !rec.StatSignificant {
		return domain.DeterminationInvalidated, "statistical significance check failed"
	}
	if !rec.RegimeConsistent {
		return domain.DeterminationConditional, "regime consistency check failed"
	}
	if rec.HasNonCriticalFlag() {
		return domain.DeterminationConditional, "non-critical sanity flag(s) raised"
	}
	return domain.DeterminationValidated, "all gates, significance, and consistency checks passed"
}

// EvaluateGates is a thin convenience wrapper so callers need only
// depend on the orchestrator package for the final-determination step;
// it simply delegates to gateeval.Evaluate.
func EvaluateGates(wf domain.WalkForward, g gateeval.Gates) domain.GateEvaluation {
	return gateeval.Evaluate(wf, g)
}
