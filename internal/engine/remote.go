package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPRemoteClient implements RemoteClient against the three HMAC-
// authenticated endpoints named in §6.
type HTTPRemoteClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	userID     string
	now        func() time.Time
}

// NewHTTPRemoteClient builds a RemoteClient; httpClient may be nil to
// use http.DefaultClient.
func NewHTTPRemoteClient(baseURL, token, userID string, httpClient *http.Client) *HTTPRemoteClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPRemoteClient{httpClient: httpClient, baseURL: baseURL, token: token, userID: userID, now: time.Now}
}

func (c *HTTPRemoteClient) authedRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		data, merr := json.Marshal(body)
		if merr != nil {
			return nil, merr
		}
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	sig, ts, user := SignHeader(c.token, c.userID, c.now())
	req.Header.Set("Timestamp", ts)
	req.Header.Set("Authorization", "Basic "+sig)
	req.Header.Set("User-Id", user)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *HTTPRemoteClient) ReadBacktest(ctx context.Context, projectID, backtestID string) (BacktestResult, error) {
	req, err := c.authedRequest(ctx, http.MethodPost, "/backtests/read", map[string]string{
		"projectId": projectID, "backtestId": backtestID,
	})
	if err != nil {
		return BacktestResult{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return BacktestResult{}, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Backtest struct {
			Status     string            `json:"status"`
			Statistics map[string]string `json:"statistics"`
		} `json:"backtest"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return BacktestResult{}, err
	}
	return BacktestResult{
		Status:     BacktestStatus(parsed.Backtest.Status),
		Statistics: parsed.Backtest.Statistics,
	}, nil
}

func (c *HTTPRemoteClient) DeleteBacktest(ctx context.Context, projectID, backtestID string) error {
	req, err := c.authedRequest(ctx, http.MethodPost, "/backtests/delete", map[string]string{
		"projectId": projectID, "backtestId": backtestID,
	})
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}

func (c *HTTPRemoteClient) ReadProjects(ctx context.Context) ([]ProjectSummary, error) {
	req, err := c.authedRequest(ctx, http.MethodGet, "/projects/read", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Projects []struct {
			ProjectID int    `json:"projectId"`
			Created   string `json:"created"`
		} `json:"projects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]ProjectSummary, 0, len(parsed.Projects))
	for _, p := range parsed.Projects {
		created, _ := time.Parse(time.RFC3339, p.Created)
		out = append(out, ProjectSummary{ProjectID: fmt.Sprint(p.ProjectID), Created: created})
	}
	return out, nil
}
