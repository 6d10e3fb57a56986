// Package sanity implements the two SanityFlag producers the
// orchestrator runs at each results-submission point, grounded on
// orchestrator.py's submit_is_results/submit_oos_results sanity-check
// accumulation.
package sanity

import (
	"fmt"

	"github.com/extremevalue/quantvalid/internal/domain"
)

// minAlpha is the floor below which an alpha estimate is considered too
// weak to be meaningful, regardless of its statistical significance.
const minAlpha = 0.01

// CheckMinAlpha flags a critical issue when the window's alpha estimate
// falls under the minimum meaningful threshold.
func CheckMinAlpha(stage string, alpha *float64) []domain.SanityFlag {
	if alpha == nil {
		return nil
	}
	if *alpha < minAlpha {
		return []domain.SanityFlag{{
			Severity: domain.SeverityCritical,
			Stage:    stage,
			Message:  fmt.Sprintf("alpha %.4f is below the minimum meaningful threshold %.4f", *alpha, minAlpha),
		}}
	}
	return nil
}

// CheckSharpeImprovedOverBaseline flags a non-critical issue when the
// candidate's Sharpe ratio does not exceed a baseline (e.g. buy-and-hold
// benchmark) Sharpe, since a strategy with no edge over a naive baseline
// is a weak validation even if it otherwise clears the gates.
func CheckSharpeImprovedOverBaseline(stage string, sharpe, baselineSharpe *float64) []domain.SanityFlag {
	if sharpe == nil || baselineSharpe == nil {
		return nil
	}
	if *sharpe <= *baselineSharpe {
		return []domain.SanityFlag{{
			Severity: domain.SeverityMedium,
			Stage:    stage,
			Message:  fmt.Sprintf("Sharpe %.3f does not improve over baseline %.3f", *sharpe, *baselineSharpe),
		}}
	}
	return nil
}
