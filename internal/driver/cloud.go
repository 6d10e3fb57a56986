package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/extremevalue/quantvalid/internal/domain"
	"github.com/extremevalue/quantvalid/internal/engine"
)

// pollInterval is the fixed remote-status polling cadence (§4.4, "≈10s").
const pollInterval = 10 * time.Second

// ProjectPusher abstracts the engine's CLI "push" tool: it uploads a
// project directory and reports the resulting project/backtest ids.
type ProjectPusher interface {
	Push(ctx context.Context, dir string) (projectID, backtestID string, output string, err error)
}

// CloudRunner drives a backtest via push-then-poll against the remote
// API, optionally reusing one project directory across runs to avoid
// the per-day project-creation quota.
type CloudRunner struct {
	Pusher       ProjectPusher
	Remote       engine.RemoteClient
	Quota        QuotaCounter
	ProjectDir   string
	ReuseProject bool
	CleanupAge   time.Duration
}

// NewCloudRunner builds a CloudRunner. When reuseProject is false, each
// Run call operates in a freshly suffixed subdirectory of projectDir.
// quota may be nil, in which case pushes are never counted against the
// per-day project-creation quota.
func NewCloudRunner(pusher ProjectPusher, remote engine.RemoteClient, quota QuotaCounter, projectDir string, reuseProject bool) *CloudRunner {
	return &CloudRunner{Pusher: pusher, Remote: remote, Quota: quota, ProjectDir: projectDir, ReuseProject: reuseProject, CleanupAge: time.Hour}
}

func (r *CloudRunner) Run(ctx context.Context, program string, w domain.WindowSpec, timeout time.Duration) (string, int, bool, error) {
	dir := r.ProjectDir
	if !r.ReuseProject {
		dir = r.ProjectDir + "/window-" + intStr(w.ID)
	}

	if r.Quota != nil {
		if _, err := r.Quota.Increment(ctx); err != nil {
			return "", 1, false, fmt.Errorf("checking cloud project quota: %w", err)
		}
	}

	projectID, backtestID, pushOutput, err := r.Pusher.Push(ctx, dir)
	if err != nil {
		return pushOutput, 1, false, nil
	}

	deadline := time.Now().Add(timeout)
	var lastResult engine.BacktestResult
	for time.Now().Before(deadline) {
		result, err := r.Remote.ReadBacktest(ctx, projectID, backtestID)
		if err != nil {
			return pushOutput, 1, false, nil
		}
		lastResult = result
		if result.Status == engine.StatusCompleted || result.Status == engine.StatusRuntimeError {
			break
		}
		select {
		case <-ctx.Done():
			_ = r.Remote.DeleteBacktest(context.Background(), projectID, backtestID)
			return pushOutput, -1, true, nil
		case <-time.After(pollInterval):
		}
	}

	if time.Now().After(deadline) || ctx.Err() != nil {
		_ = r.Remote.DeleteBacktest(context.Background(), projectID, backtestID)
		return pushOutput, -1, true, nil
	}

	output := pushOutput + "\n" + renderStatistics(lastResult.Statistics)
	exitCode := 0
	if lastResult.Status == engine.StatusRuntimeError {
		exitCode = 1
	}
	return output, exitCode, false, nil
}

func renderStatistics(stats map[string]string) string {
	var b strings.Builder
	for k, v := range stats {
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	return b.String()
}

// CleanupOrphans cancels remote backtests older than CleanupAge that
// are still occupying a node, run on startup and on observing a
// rate-limit signal, so a subsequent retry has a chance of finding
// capacity.
func (r *CloudRunner) CleanupOrphans(ctx context.Context) (freed int, err error) {
	projects, err := r.Remote.ReadProjects(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-r.CleanupAge)
	for _, p := range projects {
		if p.NodeBusy && p.Created.Before(cutoff) {
			if err := r.Remote.DeleteBacktest(ctx, p.ProjectID, ""); err == nil {
				freed++
			}
		}
	}
	return freed, nil
}
