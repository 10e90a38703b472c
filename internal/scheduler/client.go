// Package scheduler registers recurring execution jobs with the external
// automation scheduler. Registration binds a published script's content
// address to an interval and a finite execution count.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the scheduler's registration endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient builds a registration client for the scheduler at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// RegisterParams describes one recurring job.
type RegisterParams struct {
	PlanID          string `json:"plan_id"`
	OwnerAddress    string `json:"owner_address"`
	ScriptCID       string `json:"script_cid"`
	ScriptURL       string `json:"script_ipfs_url"`
	IntervalMinutes int    `json:"time_interval_minutes"`
	Executions      int    `json:"execution_count"`
}

// Registration is the scheduler's acknowledgement. Raw keeps the full service
// metadata so the API can echo it back without re-modeling it.
type Registration struct {
	JobID string
	Raw   map[string]any
}

// Executions returns how many times a plan fires over its lifetime,
// rounded down. A result below 1 is unschedulable.
func Executions(durationWeeks, intervalMinutes int) int {
	if intervalMinutes < 1 {
		return 0
	}
	return durationWeeks * 7 * 24 * 60 / intervalMinutes
}

// SimulatedJobID synthesizes a job identifier for runs without a signing
// capability. It embeds the plan id and the submission time; no registration
// call is made for these.
func SimulatedJobID(planID string, now time.Time) string {
	return fmt.Sprintf("sim-%s-%d", planID, now.UnixMilli())
}

// Register submits the job and returns the scheduler-assigned id.
func (c *Client) Register(ctx context.Context, p RegisterParams) (Registration, error) {
	if p.Executions < 1 {
		return Registration{}, fmt.Errorf("plan yields %d executions: interval exceeds the total duration", p.Executions)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return Registration{}, fmt.Errorf("marshal registration: %w", err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, c.baseURL+"/api/jobs", bytes.NewReader(body))
	if err != nil {
		return Registration{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Registration{}, fmt.Errorf("register job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Registration{}, fmt.Errorf("register job: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Registration{}, fmt.Errorf("decode registration response: %w", err)
	}

	jobID := stringValue(raw, "job_id")
	if jobID == "" {
		jobID = stringValue(raw, "jobId")
	}
	if jobID == "" {
		return Registration{}, fmt.Errorf("register job: response carries no job id")
	}

	return Registration{JobID: jobID, Raw: raw}, nil
}

func stringValue(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
