// Package sheets talks to the spreadsheet web app that mirrors attendance
// for the school office. The app exposes a single JSON endpoint that upserts
// one row keyed by idempotency key.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saturnino-fabrica-de-software/presenca/internal/cloudsync"
)

const defaultTimeout = 30 * time.Second

// Client implements cloudsync.Target over the sheet's HTTP endpoint.
type Client struct {
	url    string
	token  string
	client *http.Client
}

func NewClient(url, token string) *Client {
	return &Client{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Upsert posts one attendance row. Transport failures and server-side
// statuses come back as RetryableError; any other 4xx is fatal since the
// same payload would be rejected again.
func (c *Client) Upsert(ctx context.Context, row *cloudsync.Row) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return &cloudsync.FatalError{Err: fmt.Errorf("marshal row: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return &cloudsync.FatalError{Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Presenca-Sync/1.0")
	req.Header.Set("Idempotency-Key", row.IdempotencyKey)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &cloudsync.RetryableError{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case retryableStatus(resp.StatusCode):
		return &cloudsync.RetryableError{Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	default:
		return &cloudsync.FatalError{Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
}

func retryableStatus(code int) bool {
	return code >= 500 ||
		code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests
}
