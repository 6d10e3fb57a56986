package correction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extremevalue/quantvalid/internal/domain"
)

func TestIsCorrectable(t *testing.T) {
	assert.True(t, IsCorrectable("AttributeError: 'QCAlgorithm' object has no attribute 'History'"))
	assert.True(t, IsCorrectable("zero trades executed"))
	assert.True(t, IsCorrectable("saw Resolution.minute used incorrectly"))
	assert.False(t, IsCorrectable("completely unrelated failure text"))
}

type fakeRunner struct {
	outcomes []domain.WindowOutcome
	calls    int
}

func (r *fakeRunner) Run(ctx context.Context, program string, w domain.WindowSpec) (domain.WindowOutcome, error) {
	o := r.outcomes[r.calls]
	r.calls++
	return o, nil
}

type fakeGenerator struct {
	corrected string
}

func (g *fakeGenerator) Correct(ctx context.Context, c domain.Candidate, failingCode, errorText string) (domain.GeneratedProgram, error) {
	return domain.GeneratedProgram{Code: g.corrected}, nil
}

func identityRewrite(program string, w domain.WindowSpec) string { return program }

func TestRun_SucceedsAfterOneCorrection(t *testing.T) {
	runner := &fakeRunner{outcomes: []domain.WindowOutcome{
		{WindowID: 1, Success: false, Error: "AttributeError: 'QCAlgorithm' object has no attribute 'History'"},
		{WindowID: 1, Success: true},
	}}
	gen := &fakeGenerator{corrected: "corrected program"}

	result, err := Run(context.Background(), runner, gen, identityRewrite, domain.Candidate{}, "original program", domain.WindowSpec{ID: 1}, 3)
	require.NoError(t, err)
	assert.True(t, result.Outcome.Success)
	assert.Equal(t, 2, result.CorrectionAttempts)
	assert.Equal(t, "corrected program", result.Program)
}

func TestRun_StopsOnNonCorrectableError(t *testing.T) {
	runner := &fakeRunner{outcomes: []domain.WindowOutcome{
		{WindowID: 1, Success: false, Error: "totally unrelated failure"},
	}}
	gen := &fakeGenerator{}

	result, err := Run(context.Background(), runner, gen, identityRewrite, domain.Candidate{}, "original program", domain.WindowSpec{ID: 1}, 3)
	require.NoError(t, err)
	assert.False(t, result.Outcome.Success)
	assert.Equal(t, 1, result.CorrectionAttempts)
	assert.Equal(t, "original program", result.Program)
}

func TestRun_RateLimitedNeverCorrected(t *testing.T) {
	runner := &fakeRunner{outcomes: []domain.WindowOutcome{
		{WindowID: 1, RateLimited: true},
	}}
	gen := &fakeGenerator{}

	result, err := Run(context.Background(), runner, gen, identityRewrite, domain.Candidate{}, "original program", domain.WindowSpec{ID: 1}, 3)
	require.NoError(t, err)
	assert.True(t, result.Outcome.RateLimited)
	assert.Equal(t, 1, result.CorrectionAttempts)
}

func TestRun_BoundedAttempts(t *testing.T) {
	runner := &fakeRunner{outcomes: []domain.WindowOutcome{
		{WindowID: 1, Success: false, Error: "zero trades executed"},
		{WindowID: 1, Success: false, Error: "zero trades executed"},
		{WindowID: 1, Success: false, Error: "zero trades executed"},
	}}
	gen := &fakeGenerator{corrected: "still broken program"}

	result, err := Run(context.Background(), runner, gen, identityRewrite, domain.Candidate{}, "original program", domain.WindowSpec{ID: 1}, 3)
	require.NoError(t, err)
	assert.False(t, result.Outcome.Success)
	assert.Equal(t, 3, result.CorrectionAttempts)
}
