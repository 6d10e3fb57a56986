// Package gateeval implements C7: evaluating an aggregated WalkForward
// against a fixed, config-provided gate bundle.
package gateeval

import "github.com/extremevalue/quantvalid/internal/domain"

// Gates is the config-provided threshold bundle (§6 Configuration surface).
type Gates struct {
	MinSharpe      float64
	MinConsistency float64
	MaxDrawdown    float64
	MinCAGR        float64
}

// Evaluate produces an ordered GateResult list and an overall
// "all passed" verdict. A gate is only applied when its corresponding
// aggregate is present; a missing aggregate is never a pass (§8
// boundary). The order below is fixed so repeated evaluation on the
// same WalkForward is pure (§8 property 6).
func Evaluate(wf domain.WalkForward, gates Gates) domain.GateEvaluation {
	if wf.Aggregate == nil {
		return domain.GateEvaluation{
			Results: []domain.GateResult{
				{Name: "min_sharpe", Threshold: gates.MinSharpe, Present: false, Passed: false},
				{Name: "min_consistency", Threshold: gates.MinConsistency, Present: false, Passed: false},
				{Name: "max_drawdown", Threshold: gates.MaxDrawdown, Present: false, Passed: false},
				{Name: "min_cagr", Threshold: gates.MinCAGR, Present: false, Passed: false},
			},
			AllPassed: false,
		}
	}

	agg := wf.Aggregate
	results := []domain.GateResult{
		{
			Name: "min_sharpe", Threshold: gates.MinSharpe, Actual: agg.AggregateSharpe,
			Present: true, Passed: agg.AggregateSharpe >= gates.MinSharpe,
		},
		{
			Name: "min_consistency", Threshold: gates.MinConsistency, Actual: agg.Consistency,
			Present: true, Passed: agg.Consistency >= gates.MinConsistency,
		},
		{
			Name: "max_drawdown", Threshold: gates.MaxDrawdown, Actual: agg.WorstMaxDrawdown,
			Present: true, Passed: agg.WorstMaxDrawdown <= gates.MaxDrawdown,
		},
		{
			Name: "min_cagr", Threshold: gates.MinCAGR, Actual: agg.AggregateCAGR,
			Present: true, Passed: agg.AggregateCAGR >= gates.MinCAGR,
		},
	}

	allPassed := true
	for _, r := range results {
		if !r.Passed {
			allPassed = false
			break
		}
	}
	return domain.GateEvaluation{Results: results, AllPassed: allPassed}
}
