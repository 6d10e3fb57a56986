// Package orchestrator implements C8: the candidate-level state machine,
// its exhaustive transition table, hypothesis lock-in, sanity-flag
// accumulation, and the final-determination cascade of §4.8.
package orchestrator

import (
	"github.com/extremevalue/quantvalid/internal/domain"
	"github.com/extremevalue/quantvalid/internal/errs"
)

// forwardTransitions is the exhaustive table of valid From->To moves;
// any pair not listed here is a StateTransitionError. blocked and failed
// are terminal side-tracks reachable from any non-terminal state, so
// they are not enumerated per-source here but checked separately in
// Transition.
var forwardTransitions = map[domain.State]domain.State{
	domain.StateInitialized:      domain.StateHypothesisLocked,
	domain.StateHypothesisLocked: domain.StateDataAudit,
	domain.StateDataAudit:        domain.StateISTesting,
	domain.StateISTesting:        domain.StateStatistical,
	domain.StateStatistical:      domain.StateRegime,
	domain.StateRegime:           domain.StateOOSTesting,
	domain.StateOOSTesting:       domain.StateDetermination,
	domain.StateDetermination:    domain.StateCompleted,
}

func isTerminalSideTrack(s domain.State) bool {
	return s == domain.StateBlocked || s == domain.StateFailed
}

func isNonTerminal(s domain.State) bool {
	_, ok := forwardTransitions[s]
	return ok || s == domain.StateCompleted
}

// ValidateTransition reports whether moving from `from` to `to` is legal:
// the exact next state in the forward table, or any terminal side-track
// from a non-terminal state.
func ValidateTransition(from, to domain.State) error {
	if next, ok := forwardTransitions[from]; ok && next == to {
		return nil
	}
	if isTerminalSideTrack(to) && isNonTerminal(from) && from != domain.StateCompleted {
		return nil
	}
	return errs.Wrap(errs.ErrStateTransition, "cannot move from "+string(from)+" to "+string(to))
}
