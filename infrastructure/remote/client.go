// Package remote talks to the remote scheduling authority.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgError "github.com/nivaro/postpilot/pkg/error"
	"github.com/nivaro/postpilot/scheduling/application"
	"github.com/nivaro/postpilot/scheduling/domain"
)

// Config configures the remote authority client.
type Config struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
}

// Client implements application.RemoteClient over the authority's REST
// sync endpoints.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type snapshotPayload struct {
	ScheduledPosts []domain.ScheduledPost `json:"scheduled_posts"`
}

type snapshotResponse struct {
	Message string `json:"message"`
}

// PushSnapshot uploads the full working set. The remote treats it as
// last known state, not an append.
func (c *Client) PushSnapshot(ctx context.Context, posts []domain.ScheduledPost) error {
	var resp snapshotResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/sync/snapshot", snapshotPayload{ScheduledPosts: posts}, &resp)
	if err != nil {
		return err
	}
	return nil
}

// RequestSweep asks the authority to execute its due posts now.
func (c *Client) RequestSweep(ctx context.Context) (application.SweepOutcome, error) {
	var outcome application.SweepOutcome
	if err := c.jsonRequest(ctx, http.MethodPost, "/sync/sweep", nil, &outcome); err != nil {
		return application.SweepOutcome{}, err
	}
	return outcome, nil
}

// jsonRequest unifies request creation, execution and decoding.
func (c *Client) jsonRequest(ctx context.Context, method, path string, body interface{}, dest interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	if resp.StatusCode >= 400 {
		return pkgError.RemoteSyncError(fmt.Sprintf("remote request failed: status=%d body=%s", resp.StatusCode, string(data)))
	}

	if dest != nil && len(data) > 0 {
		return json.Unmarshal(data, dest)
	}
	return nil
}
