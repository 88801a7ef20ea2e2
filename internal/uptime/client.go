// Package uptime proxies the external monitor API and folds the monitor
// list into a single health verdict for the dashboard shell.
package uptime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sonic/pkg/metrics"
)

// Overall is the folded health of every monitor.
type Overall string

const (
	// StatusUp means every monitor reports up.
	StatusUp Overall = "up"
	// StatusDegraded means at least one monitor reports something else.
	StatusDegraded Overall = "degraded"
	// StatusUnreachable means the monitor API itself could not be reached.
	// Distinct from degraded: we know nothing, rather than knowing of a
	// problem.
	StatusUnreachable Overall = "unreachable"
)

type Client struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(url, token string, logger *zap.Logger) *Client {
	return &Client{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

type monitorsResponse struct {
	Data []Monitor `json:"data"`
}

type Monitor struct {
	ID         string `json:"id"`
	Attributes struct {
		Status string `json:"status"`
	} `json:"attributes"`
}

// Check fetches all monitors and reports up iff every one of them is up.
// Any fetch failure degrades to unreachable instead of returning an error:
// uptime display never blocks functionality.
func (c *Client) Check(ctx context.Context) Overall {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return StatusUnreachable
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamCallLatency("uptime", "error", time.Since(start))
		c.logger.Warn("Uptime check failed", zap.Error(err))
		return StatusUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordUpstreamCallLatency("uptime", "error", time.Since(start))
		return StatusUnreachable
	}
	metrics.RecordUpstreamCallLatency("uptime", "success", time.Since(start))

	var monitors monitorsResponse
	if err := json.NewDecoder(resp.Body).Decode(&monitors); err != nil {
		return StatusUnreachable
	}

	for _, m := range monitors.Data {
		if m.Attributes.Status != "up" {
			return StatusDegraded
		}
	}
	return StatusUp
}
