// Package regimecheck implements the orchestrator's informational,
// non-blocking regime-consistency stage, grounded on orchestrator.py's
// run_regime_analysis: is performance stable across the first half and
// second half of the successful walk-forward windows.
package regimecheck

import "github.com/extremevalue/quantvalid/internal/domain"

// Result is the stage's verdict plus the two bucket statistics it
// compared, for reporting.
type Result struct {
	Consistent   bool
	FirstHalf    float64
	SecondHalf   float64
}

// Evaluate partitions the successful windows (in order) into a first
// and second half by position — not by window-id parity, which would be
// an arbitrary choice for an odd count — and reports consistency as both
// halves having the same CAGR sign, with at least one window on each
// side. A walk-forward with fewer than two successful windows cannot be
// partitioned meaningfully and is treated as consistent, matching the
// original's non-blocking framing.
func Evaluate(windows []domain.WindowOutcome) Result {
	var successful []domain.WindowOutcome
	for _, w := range windows {
		if w.Success && w.CAGR != nil {
			successful = append(successful, w)
		}
	}
	if len(successful) < 2 {
		return Result{Consistent: true}
	}

	mid := len(successful) / 2
	first := successful[:mid]
	second := successful[mid:]

	firstMean := meanCAGR(first)
	secondMean := meanCAGR(second)

	return Result{
		Consistent: sameSign(firstMean, secondMean),
		FirstHalf:  firstMean,
		SecondHalf: secondMean,
	}
}

func meanCAGR(windows []domain.WindowOutcome) float64 {
	if len(windows) == 0 {
		return 0
	}
	sum := 0.0
	for _, w := range windows {
		sum += *w.CAGR
	}
	return sum / float64(len(windows))
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}
