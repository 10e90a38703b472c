// Package planstore updates the external plan record after a job is created.
// The update is a blind upsert of the job id and script link keyed by plan id;
// this service never reads or caches plan records.
package planstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client issues linkage updates to the plan store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient builds a plan store client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

type linkagePayload struct {
	JobID    string `json:"jobId"`
	IPFSLink string `json:"ipfsLink"`
}

// UpdateLinkage records the job id and script link on the plan.
// Success is acknowledgement only.
func (c *Client) UpdateLinkage(ctx context.Context, planID, jobID, ipfsLink string) error {
	body, err := json.Marshal(linkagePayload{JobID: jobID, IPFSLink: ipfsLink})
	if err != nil {
		return fmt.Errorf("marshal linkage: %w", err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/plans/%s", c.baseURL, url.PathEscape(planID))
	req, err := http.NewRequestWithContext(ctxTimeout, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update plan %s: %w", planID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("update plan %s: status %d: %s", planID, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
