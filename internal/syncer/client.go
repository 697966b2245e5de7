package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"studytrack-agent/internal/models"
)

// Client pushes activity payloads to the remote tracking API: one endpoint
// per content kind, scoped by chapter.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// PushActivity transmits one record payload. Any transport error or non-2xx
// response is a failure; the caller leaves the record pending and retries on
// the next pass. The context carries the per-record timeout.
func (c *Client) PushActivity(ctx context.Context, kind models.Kind, chapterID, token string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", kind.Name, err)
	}

	url := fmt.Sprintf("%s/api/v1/chapters/%s/tracking/%s", c.baseURL, chapterID, kind.Name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build tracking request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tracking request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tracking API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
