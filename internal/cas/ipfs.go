package cas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"dca-automation/internal/models"
)

// IPFSClient publishes payloads through an IPFS node's HTTP API and builds
// resolvable links against a public gateway.
type IPFSClient struct {
	apiURL     string
	gatewayURL string
	httpClient *http.Client
	timeout    time.Duration
}

// NewIPFSClient builds a client for the node API at apiURL. gatewayURL is
// the base used for returned links, e.g. https://ipfs.io.
func NewIPFSClient(apiURL, gatewayURL string, timeout time.Duration) *IPFSClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &IPFSClient{
		apiURL:     strings.TrimRight(apiURL, "/"),
		gatewayURL: strings.TrimRight(gatewayURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

type ipfsAddResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Put uploads the payload via /api/v0/add and pins it.
func (c *IPFSClient) Put(ctx context.Context, name string, payload []byte) (models.ContentRef, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return models.ContentRef{}, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return models.ContentRef{}, fmt.Errorf("write multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return models.ContentRef{}, fmt.Errorf("close multipart: %w", err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.apiURL + "/api/v0/add?cid-version=1&pin=true"
	req, err := http.NewRequestWithContext(ctxTimeout, http.MethodPost, url, &body)
	if err != nil {
		return models.ContentRef{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ContentRef{}, fmt.Errorf("ipfs add: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.ContentRef{}, fmt.Errorf("ipfs add: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var added ipfsAddResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return models.ContentRef{}, fmt.Errorf("decode ipfs response: %w", err)
	}
	if added.Hash == "" {
		return models.ContentRef{}, fmt.Errorf("ipfs add: empty hash for %s", name)
	}

	return models.ContentRef{
		CID: added.Hash,
		URL: fmt.Sprintf("%s/ipfs/%s", c.gatewayURL, added.Hash),
	}, nil
}
