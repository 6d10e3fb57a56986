// Package engine defines the capability interfaces C3 (LLM) and C4
// (remote backtest API) depend on, plus the concrete HMAC-authenticated
// HTTP client for the remote engine API. Implementing the actual LEAN/
// QuantConnect engine is out of scope (§4 Non-goals); only these client
// surfaces exist here.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"
)

// BacktestStatus is the remote API's coarse status for one backtest.
type BacktestStatus string

const (
	StatusRunning      BacktestStatus = "Running"
	StatusCompleted    BacktestStatus = "Completed"
	StatusRuntimeError BacktestStatus = "RuntimeError"
)

// BacktestResult is the decoded response of backtests/read: status plus
// the statistics map, field names verbatim from the remote API.
type BacktestResult struct {
	Status     BacktestStatus
	Statistics map[string]string
}

// RemoteClient is the capability C4's cloud mode depends on for the
// three endpoints named in §6.
type RemoteClient interface {
	ReadBacktest(ctx context.Context, projectID, backtestID string) (BacktestResult, error)
	DeleteBacktest(ctx context.Context, projectID, backtestID string) error
	ReadProjects(ctx context.Context) ([]ProjectSummary, error)
}

// ProjectSummary is one entry from projects/read, enough to drive orphan
// cleanup (age + whether it still occupies a node).
type ProjectSummary struct {
	ProjectID string
	Created   time.Time
	NodeBusy  bool
}

// SignHeader computes the HMAC-style auth header the remote API expects:
// base64(sha256("token:timestamp")), paired with the user id.
func SignHeader(token, userID string, at time.Time) (signature string, timestamp string, user string) {
	ts := strconv.FormatInt(at.Unix(), 10)
	sum := sha256.Sum256([]byte(token + ":" + ts))
	return base64.StdEncoding.EncodeToString(sum[:]), ts, userID
}
