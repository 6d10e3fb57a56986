package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extremevalue/quantvalid/internal/domain"
)

// fakeRunner returns a fixed sequence of (output, exitCode) pairs, one
// per Run call, and optionally implements OrphanCleaner.
type fakeRunner struct {
	outputs   []string
	exitCode  int
	exitCodes []int
	calls     int
	freed     []int
	cleanups  int
}

func (f *fakeRunner) Run(_ context.Context, _ string, _ domain.WindowSpec, _ time.Duration) (string, int, bool, error) {
	out := f.outputs[f.calls]
	code := f.exitCode
	if f.calls < len(f.exitCodes) {
		code = f.exitCodes[f.calls]
	}
	if f.calls < len(f.outputs)-1 {
		f.calls++
	}
	return out, code, false, nil
}

func (f *fakeRunner) CleanupOrphans(_ context.Context) (int, error) {
	freed := f.freed[f.cleanups]
	if f.cleanups < len(f.freed)-1 {
		f.cleanups++
	}
	return freed, nil
}

func newTestDriver(runner Runner) *Driver {
	d := New(runner, nil, time.Second)
	d.sleep = func(time.Duration) {}
	return d
}

func TestRun_RetriesWhenCleanupFreesCapacity(t *testing.T) {
	runner := &fakeRunner{
		outputs:   []string{"rate limit exceeded", "Total Orders: 5\nSharpe Ratio: 1.2"},
		exitCodes: []int{1, 0},
		freed:     []int{2},
	}
	d := newTestDriver(runner)

	outcome, err := d.Run(context.Background(), "program", domain.WindowSpec{ID: 1})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, runner.calls+1)
}

func TestRun_DoesNotRetryWhenCleanupFreesNothing(t *testing.T) {
	runner := &fakeRunner{
		outputs:  []string{"rate limit exceeded"},
		exitCode: 1,
		freed:    []int{0},
	}
	d := newTestDriver(runner)

	outcome, err := d.Run(context.Background(), "program", domain.WindowSpec{ID: 1})
	require.NoError(t, err)
	assert.True(t, outcome.RateLimited)
	assert.Equal(t, 1, runner.calls+1)
}

// plainFakeRunner has no CleanupOrphans method at all (local execution).
type plainFakeRunner struct {
	output   string
	exitCode int
	calls    int
}

func (f *plainFakeRunner) Run(_ context.Context, _ string, _ domain.WindowSpec, _ time.Duration) (string, int, bool, error) {
	f.calls++
	return f.output, f.exitCode, false, nil
}

func TestRun_DoesNotRetryWhenRunnerHasNoCleanupSupport(t *testing.T) {
	runner := &plainFakeRunner{output: "rate limit exceeded", exitCode: 1}
	d := newTestDriver(runner)

	outcome, err := d.Run(context.Background(), "program", domain.WindowSpec{ID: 1})
	require.NoError(t, err)
	assert.True(t, outcome.RateLimited)
	assert.Equal(t, 1, runner.calls)
}

func TestToOutcome_MapsNetProfitToTotalReturn(t *testing.T) {
	outcome := toOutcome(1, classify("Total Orders: 5\nNet Profit: 12.3%", 0), "raw")
	require.NotNil(t, outcome.TotalReturn)
	assert.InDelta(t, 0.123, *outcome.TotalReturn, 1e-9)
}
