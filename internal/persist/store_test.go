package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extremevalue/quantvalid/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(dir)
}

func sampleCandidate(id string, status domain.Status) domain.Candidate {
	return domain.Candidate{
		ID:           id,
		Name:         "Test Strategy",
		StrategyType: "momentum_rotation",
		Status:       status,
		Universe:     domain.Universe{Type: "static", Symbols: []string{"SPY", "TLT"}},
	}
}

func TestSaveAndLoadCandidate_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := sampleCandidate("STRAT-001", domain.StatusPending)

	require.NoError(t, s.SaveCandidate(ctx, c))
	loaded, err := s.LoadCandidate(ctx, "STRAT-001")
	require.NoError(t, err)
	assert.Equal(t, c.ID, loaded.ID)
	assert.Equal(t, c.StrategyType, loaded.StrategyType)
	assert.Equal(t, c.Status, loaded.Status)
	assert.Equal(t, c.Universe.Symbols, loaded.Universe.Symbols)
}

func TestLoadCandidate_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadCandidate(context.Background(), "NOPE")
	assert.Error(t, err)
}

func TestListPending_ReturnsOnlyPendingDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCandidate(ctx, sampleCandidate("A", domain.StatusPending)))
	require.NoError(t, s.SaveCandidate(ctx, sampleCandidate("B", domain.StatusPending)))
	require.NoError(t, s.SaveCandidate(ctx, sampleCandidate("C", domain.StatusValidated)))

	pending, err := s.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestListPending_EmptyDirectoryIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	pending, err := s.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMoveStatus_RenamesAcrossDirectoriesAndRewritesStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCandidate(ctx, sampleCandidate("STRAT-001", domain.StatusPending)))

	moved, err := s.MoveStatus(ctx, "STRAT-001", domain.StatusValidated)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, moved.Status)

	_, err = os.Stat(s.strategyPath(domain.StatusPending, "STRAT-001"))
	assert.True(t, os.IsNotExist(err))

	loaded, err := s.LoadCandidate(ctx, "STRAT-001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusValidated, loaded.Status)
}

func TestMoveStatus_ToSameStatusIsANoOp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveCandidate(ctx, sampleCandidate("STRAT-001", domain.StatusPending)))

	path := s.strategyPath(domain.StatusPending, "STRAT-001")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = s.MoveStatus(ctx, "STRAT-001", domain.StatusPending)
	require.NoError(t, err)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWriteIfChanged_IdenticalContentIsNoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.txt")

	require.NoError(t, writeIfChanged(path, []byte("hello")))
	info1, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, writeIfChanged(path, []byte("hello")))
	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestWriteIfChanged_DifferentContentOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")

	require.NoError(t, writeIfChanged(path, []byte("hello")))
	require.NoError(t, writeIfChanged(path, []byte("goodbye")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "goodbye", string(data))
}

func TestWriteRunResultAndDetermination_ProduceExpectedArtifacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sharpe := 1.2
	wf := domain.WalkForward{
		CandidateID: "STRAT-001",
		Windows:     []domain.WindowOutcome{{WindowID: 1, Success: true, Sharpe: &sharpe}},
		Determination: domain.DeterminationValidated,
	}
	require.NoError(t, s.WriteRunResult(ctx, "STRAT-001", wf))

	_, err := os.Stat(filepath.Join(s.validationDir("STRAT-001"), "run_result.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.validationDir("STRAT-001"), "backtest_results.yaml"))
	assert.NoError(t, err)

	rec := &domain.StateRecord{
		CandidateID:   "STRAT-001",
		CurrentState:  domain.StateDetermination,
		Determination: domain.DeterminationValidated,
	}
	require.NoError(t, s.WriteDetermination(ctx, rec))
	_, err = os.Stat(filepath.Join(s.validationDir("STRAT-001"), "determination.json"))
	assert.NoError(t, err)
}

func TestWriteGeneratedProgramAndLastOutput(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteGeneratedProgram(ctx, "STRAT-001", "class Foo: pass"))
	require.NoError(t, s.WriteLastOutput(ctx, "STRAT-001", "Sharpe Ratio: 1.2"))

	data, err := os.ReadFile(filepath.Join(s.validationDir("STRAT-001"), "backtest.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "class Foo")
}
