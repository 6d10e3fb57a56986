package sanity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestCheckMinAlpha_FlagsBelowThreshold(t *testing.T) {
	flags := CheckMinAlpha("is_testing", f(0.005))
	assert.Len(t, flags, 1)
	assert.Equal(t, "critical", string(flags[0].Severity))
}

func TestCheckMinAlpha_NoFlagAboveThreshold(t *testing.T) {
	flags := CheckMinAlpha("is_testing", f(0.05))
	assert.Empty(t, flags)
}

func TestCheckMinAlpha_NilIsNoOp(t *testing.T) {
	assert.Empty(t, CheckMinAlpha("is_testing", nil))
}

func TestCheckSharpeImprovedOverBaseline_FlagsNonImprovement(t *testing.T) {
	flags := CheckSharpeImprovedOverBaseline("oos_testing", f(0.4), f(0.6))
	assert.Len(t, flags, 1)
	assert.Equal(t, "medium", string(flags[0].Severity))
}

func TestCheckSharpeImprovedOverBaseline_NoFlagWhenImproved(t *testing.T) {
	flags := CheckSharpeImprovedOverBaseline("oos_testing", f(0.9), f(0.6))
	assert.Empty(t, flags)
}
