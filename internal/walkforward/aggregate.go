package walkforward

import (
	"context"
	"sort"

	"github.com/extremevalue/quantvalid/internal/correction"
	"github.com/extremevalue/quantvalid/internal/domain"
)

// WindowRunner is the capability C6 needs from C4 for windows after the
// first (no correction wrapping).
type WindowRunner interface {
	Run(ctx context.Context, program string, w domain.WindowSpec) (domain.WindowOutcome, error)
}

// Aggregator runs a generated program across an ordered WindowSpec list
// and produces a WalkForward, wrapping only the first window with C5's
// correction loop.
type Aggregator struct {
	runner      WindowRunner
	gen         correction.Generator
	rewrite     correction.DateRewriter
	maxAttempts int
}

// NewAggregator builds an Aggregator. maxAttempts bounds C5's
// correction loop on the first window; 0 falls back to 3 (§4.5's
// default).
func NewAggregator(runner WindowRunner, gen correction.Generator, rewrite correction.DateRewriter, maxAttempts int) *Aggregator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Aggregator{runner: runner, gen: gen, rewrite: rewrite, maxAttempts: maxAttempts}
}

// Run executes every window in order, short-circuiting on a
// rate-limited or engine-crash outcome, then aggregates over the
// successful windows.
func (a *Aggregator) Run(ctx context.Context, c domain.Candidate, program string, windows []domain.WindowSpec) (domain.WalkForward, error) {
	wf := domain.WalkForward{CandidateID: c.ID}
	currentProgram := program

	for i, w := range windows {
		var outcome domain.WindowOutcome
		if i == 0 {
			result, err := correction.Run(ctx, a.runner, a.gen, a.rewrite, c, currentProgram, w, a.maxAttempts)
			if err != nil {
				return domain.WalkForward{}, err
			}
			outcome = result.Outcome
			currentProgram = result.Program
		} else {
			rewritten := a.rewrite(currentProgram, w)
			var err error
			outcome, err = a.runner.Run(ctx, rewritten, w)
			if err != nil {
				return domain.WalkForward{}, err
			}
		}

		wf.Windows = append(wf.Windows, outcome)

		if outcome.RateLimited {
			wf.Determination = domain.DeterminationRetryLater
			wf.DeterminationReason = "rate limited during walk-forward"
			wf.IsTransient = true
			return wf, nil
		}
		if outcome.EngineCrash {
			wf.Determination = domain.DeterminationBlocked
			wf.DeterminationReason = "engine crash"
			wf.IsTransient = false
			return wf, nil
		}
	}

	wf.Aggregate = aggregate(wf.Windows)
	if wf.Aggregate == nil {
		wf.Determination = domain.DeterminationBlocked
		wf.DeterminationReason = "no successful backtest windows"
		wf.IsTransient = false
		return wf, nil
	}

	wf.Determination = domain.DeterminationPending
	return wf, nil
}

// aggregate computes C6's cross-window statistics over successful
// windows only (§8 property 7); returns nil if none succeeded.
func aggregate(windows []domain.WindowOutcome) *domain.WalkForwardAggregate {
	var cagrs, sharpes, drawdowns []float64
	positiveCount := 0
	successCount := 0

	for _, w := range windows {
		if !w.Success {
			continue
		}
		successCount++
		if w.CAGR != nil {
			cagrs = append(cagrs, *w.CAGR)
			if *w.CAGR > 0 {
				positiveCount++
			}
		}
		if w.Sharpe != nil {
			sharpes = append(sharpes, *w.Sharpe)
		}
		if w.MaxDrawdown != nil {
			drawdowns = append(drawdowns, *w.MaxDrawdown)
		}
	}

	if successCount == 0 {
		return nil
	}

	agg := &domain.WalkForwardAggregate{
		MeanReturn:       mean(cagrs),
		MedianReturn:     median(cagrs),
		AggregateSharpe:  mean(sharpes),
		AggregateCAGR:    mean(cagrs),
		WorstMaxDrawdown: maxFloat(drawdowns),
		Consistency:      float64(positiveCount) / float64(successCount),
	}
	return agg
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// median returns the arithmetic mean of the two middle elements for an
// even-length sequence (§8 boundary behavior).
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2.0
}

func maxFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
