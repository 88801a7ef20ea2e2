// Package scheduler talks to the external trigger service that owns the
// actual send-at-a-future-time mechanism. The service is a black box: this
// client registers, updates and cancels dispatch jobs and never implements
// any queueing or retry of its own.
package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sonic/pkg/circuitbreaker"
	"sonic/pkg/metrics"
)

// Job describes one outgoing message handed to the trigger service.
type Job struct {
	Recipient     string     `json:"recipient"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	AttachmentURL string     `json:"attachmentURL,omitempty"`
	SendAt        *time.Time `json:"send_at,omitempty"`
}

type Client struct {
	url        string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(url string, logger *zap.Logger) *Client {
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 2,
	}

	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cb:     circuitbreaker.NewCircuitBreaker(cbConfig),
		logger: logger,
	}
}

type response struct {
	Success   bool   `json:"success"`
	TriggerID string `json:"trigger_id"`
	Message   string `json:"message"`
}

// Register creates a scheduled dispatch job and returns the opaque trigger
// handle used for later update or cancel.
func (c *Client) Register(ctx context.Context, job Job) (string, error) {
	body := map[string]any{
		"action":        "CREATE",
		"recipient":     job.Recipient,
		"subject":       job.Subject,
		"body":          job.Body,
		"attachmentURL": job.AttachmentURL,
	}
	if job.SendAt != nil {
		body["send_at"] = job.SendAt.UTC().Format(time.RFC1123)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	if resp.TriggerID == "" {
		return "", errors.New("scheduler returned no trigger id")
	}
	return resp.TriggerID, nil
}

// DispatchNow sends the message immediately, with no trigger registered.
func (c *Client) DispatchNow(ctx context.Context, job Job) error {
	_, err := c.post(ctx, map[string]any{
		"action":        "SEND",
		"recipient":     job.Recipient,
		"subject":       job.Subject,
		"body":          job.Body,
		"attachmentURL": job.AttachmentURL,
	})
	return err
}

// Update rewrites the message held by an existing trigger. The scheduled
// time is never touched.
func (c *Client) Update(ctx context.Context, triggerID, recipient, subject, body string) error {
	_, err := c.post(ctx, map[string]any{
		"action":    "UPDATE",
		"triggerID": triggerID,
		"recipient": recipient,
		"subject":   subject,
		"body":      body,
	})
	return err
}

// Cancel releases the trigger, abandoning the scheduled dispatch.
func (c *Client) Cancel(ctx context.Context, triggerID string) error {
	_, err := c.post(ctx, map[string]any{
		"action":    "DELETE",
		"triggerID": triggerID,
	})
	return err
}

func (c *Client) post(ctx context.Context, body map[string]any) (*response, error) {
	var out *response

	err := c.cb.Execute(func() error {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "text/plain;charset=utf-8")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordUpstreamCallLatency("scheduler", "error", time.Since(start))
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			metrics.RecordUpstreamCallLatency("scheduler", fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
			return fmt.Errorf("scheduler error: %d", resp.StatusCode)
		}

		var r response
		if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
			metrics.RecordUpstreamCallLatency("scheduler", "error", time.Since(start))
			return err
		}
		if !r.Success {
			metrics.RecordUpstreamCallLatency("scheduler", "rejected", time.Since(start))
			return fmt.Errorf("scheduler rejected request: %s", r.Message)
		}

		metrics.RecordUpstreamCallLatency("scheduler", "success", time.Since(start))
		out = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
