package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extremevalue/quantvalid/internal/domain"
	"github.com/extremevalue/quantvalid/internal/engine"
)

type fakePusher struct {
	projectID, backtestID string
}

func (p *fakePusher) Push(_ context.Context, _ string) (string, string, string, error) {
	return p.projectID, p.backtestID, "pushed", nil
}

type fakeRemote struct {
	result   engine.BacktestResult
	projects []engine.ProjectSummary
	deleted  []string
}

func (r *fakeRemote) ReadBacktest(_ context.Context, _, _ string) (engine.BacktestResult, error) {
	return r.result, nil
}

func (r *fakeRemote) DeleteBacktest(_ context.Context, projectID, _ string) error {
	r.deleted = append(r.deleted, projectID)
	return nil
}

func (r *fakeRemote) ReadProjects(_ context.Context) ([]engine.ProjectSummary, error) {
	return r.projects, nil
}

type countingQuota struct {
	count int64
}

func (q *countingQuota) Increment(_ context.Context) (int64, error) {
	q.count++
	return q.count, nil
}

func TestCloudRunner_IncrementsQuotaOnEachPush(t *testing.T) {
	quota := &countingQuota{}
	remote := &fakeRemote{result: engine.BacktestResult{
		Status:     engine.StatusCompleted,
		Statistics: map[string]string{"Sharpe Ratio": "1.1"},
	}}
	runner := NewCloudRunner(&fakePusher{projectID: "p1", backtestID: "b1"}, remote, quota, "/tmp/project", true)

	_, _, _, err := runner.Run(context.Background(), "program", domain.WindowSpec{ID: 1}, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, quota.count)

	_, _, _, err = runner.Run(context.Background(), "program", domain.WindowSpec{ID: 2}, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 2, quota.count)
}

func TestCloudRunner_SkipsQuotaWhenNotConfigured(t *testing.T) {
	remote := &fakeRemote{result: engine.BacktestResult{Status: engine.StatusCompleted}}
	runner := NewCloudRunner(&fakePusher{projectID: "p1", backtestID: "b1"}, remote, nil, "/tmp/project", true)

	_, _, _, err := runner.Run(context.Background(), "program", domain.WindowSpec{ID: 1}, time.Minute)
	require.NoError(t, err)
}

func TestCleanupOrphans_DeletesOnlyOldBusyProjects(t *testing.T) {
	now := time.Now()
	remote := &fakeRemote{projects: []engine.ProjectSummary{
		{ProjectID: "old-busy", Created: now.Add(-2 * time.Hour), NodeBusy: true},
		{ProjectID: "old-idle", Created: now.Add(-2 * time.Hour), NodeBusy: false},
		{ProjectID: "new-busy", Created: now, NodeBusy: true},
	}}
	runner := NewCloudRunner(&fakePusher{}, remote, nil, "/tmp/project", true)
	runner.CleanupAge = time.Hour

	freed, err := runner.CleanupOrphans(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, freed)
	assert.Equal(t, []string{"old-busy"}, remote.deleted)
}
