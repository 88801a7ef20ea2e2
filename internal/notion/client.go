// Package notion fetches and mutates contact rows in the external document
// database that sources the outreach backlog.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sonic/internal/model"
	"sonic/pkg/circuitbreaker"
	"sonic/pkg/metrics"
)

const apiVersion = "2022-06-28"

// ErrNoPageFound is returned by UpdateStatus when the email-equality filter
// matches no page in the database.
var ErrNoPageFound = errors.New("no page found matching given email")

// ErrInvalidTransition is returned by UpdateStatus when the page's current
// status does not allow the requested one.
var ErrInvalidTransition = errors.New("status transition not allowed")

type Client struct {
	baseURL    string
	token      string
	databaseID string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(baseURL, token, databaseID string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		databaseID: databaseID,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		cb:     circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger: logger,
	}
}

type queryRequest struct {
	Filter      *queryFilter `json:"filter,omitempty"`
	StartCursor string       `json:"start_cursor,omitempty"`
}

type queryFilter struct {
	Or       []statusClause `json:"or,omitempty"`
	Property string         `json:"property,omitempty"`
	Email    *emailEquals   `json:"email,omitempty"`
}

type statusClause struct {
	Property string       `json:"property"`
	Status   statusEquals `json:"status"`
}

type statusEquals struct {
	Equals string `json:"equals"`
}

type emailEquals struct {
	Equals string `json:"equals"`
}

type queryResponse struct {
	Results    []pageResult `json:"results"`
	NextCursor string       `json:"next_cursor"`
}

type pageResult struct {
	ID          string `json:"id"`
	CreatedTime string `json:"created_time"`
	Properties  struct {
		Email struct {
			Email *string `json:"email"`
		} `json:"Email"`
		Name struct {
			Title []struct {
				PlainText string `json:"plain_text"`
			} `json:"title"`
		} `json:"Name"`
		LabURL struct {
			URL *string `json:"url"`
		} `json:"Lab URL"`
		University struct {
			Select *struct {
				Name string `json:"name"`
			} `json:"select"`
		} `json:"University"`
		Status struct {
			Status *struct {
				Name string `json:"name"`
			} `json:"status"`
		} `json:"Status"`
	} `json:"properties"`
}

// FetchContacts queries the database for every page matching one of the
// given statuses, following the continuation cursor to exhaustion and
// flattening all pages into one ordered slice. A single malformed row
// fails the whole fetch; there is no partial-success mode.
func (c *Client) FetchContacts(ctx context.Context, statuses []model.ContactStatus) ([]model.Contact, error) {
	var contacts []model.Contact

	err := c.cb.Execute(func() error {
		contacts = contacts[:0]
		cursor := ""

		for {
			req := queryRequest{StartCursor: cursor}
			if len(statuses) > 0 {
				filter := &queryFilter{}
				for _, s := range statuses {
					filter.Or = append(filter.Or, statusClause{
						Property: "Status",
						Status:   statusEquals{Equals: string(s)},
					})
				}
				req.Filter = filter
			}

			var resp queryResponse
			if err := c.query(ctx, req, &resp); err != nil {
				return err
			}

			for _, row := range resp.Results {
				contact, err := normalizeRow(row)
				if err != nil {
					return fmt.Errorf("malformed contact row %s: %w", row.ID, err)
				}
				contacts = append(contacts, contact)
			}

			if resp.NextCursor == "" {
				return nil
			}
			cursor = resp.NextCursor
		}
	})
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// UpdateStatus looks up the page whose Email property equals the given
// address and patches its Status property. Zero matches is ErrNoPageFound;
// a move the current status does not allow is ErrInvalidTransition.
func (c *Client) UpdateStatus(ctx context.Context, email string, status model.ContactStatus) error {
	return c.cb.Execute(func() error {
		pageID, current, err := c.pageByEmail(ctx, email)
		if err != nil {
			return err
		}
		// A page with no status yet may take any stage.
		if current != "" && !current.CanTransition(status) {
			return fmt.Errorf("%s to %s: %w", current, status, ErrInvalidTransition)
		}

		body := map[string]any{
			"properties": map[string]any{
				"Status": map[string]any{
					"status": map[string]any{"name": string(status)},
				},
			},
		}

		b, err := json.Marshal(body)
		if err != nil {
			return err
		}

		url := fmt.Sprintf("%s/v1/pages/%s", c.baseURL, pageID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(b))
		if err != nil {
			return err
		}
		c.setHeaders(req)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordUpstreamCallLatency("notion", "error", time.Since(start))
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			metrics.RecordUpstreamCallLatency("notion", fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
			return fmt.Errorf("failed to update status: %d", resp.StatusCode)
		}
		metrics.RecordUpstreamCallLatency("notion", "success", time.Since(start))
		return nil
	})
}

func (c *Client) pageByEmail(ctx context.Context, email string) (string, model.ContactStatus, error) {
	req := queryRequest{
		Filter: &queryFilter{
			Property: "Email",
			Email:    &emailEquals{Equals: email},
		},
	}

	var resp queryResponse
	if err := c.query(ctx, req, &resp); err != nil {
		return "", "", err
	}
	if len(resp.Results) == 0 {
		return "", "", ErrNoPageFound
	}
	row := resp.Results[0]
	var current model.ContactStatus
	if row.Properties.Status.Status != nil {
		current = model.ContactStatus(row.Properties.Status.Status.Name)
	}
	return row.ID, current, nil
}

func (c *Client) query(ctx context.Context, body queryRequest, out *queryResponse) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/databases/%s/query", c.baseURL, c.databaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamCallLatency("notion", "error", time.Since(start))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordUpstreamCallLatency("notion", fmt.Sprintf("%d", resp.StatusCode), time.Since(start))
		return fmt.Errorf("notion API error: %s", resp.Status)
	}
	metrics.RecordUpstreamCallLatency("notion", "success", time.Since(start))

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", apiVersion)
}

// normalizeRow flattens a raw page into the uniform contact shape. Email
// and the name title are required; a row missing either aborts the fetch.
func normalizeRow(row pageResult) (model.Contact, error) {
	if row.Properties.Email.Email == nil || *row.Properties.Email.Email == "" {
		return model.Contact{}, errors.New("missing email")
	}
	if len(row.Properties.Name.Title) == 0 {
		return model.Contact{}, errors.New("missing name title")
	}

	contact := model.Contact{
		ID:    row.ID,
		Email: *row.Properties.Email.Email,
		Name:  row.Properties.Name.Title[0].PlainText,
	}
	if row.Properties.LabURL.URL != nil {
		contact.LabURL = *row.Properties.LabURL.URL
	}
	if row.Properties.University.Select != nil {
		contact.University = model.University(row.Properties.University.Select.Name)
	}
	if row.Properties.Status.Status != nil {
		contact.Status = model.ContactStatus(row.Properties.Status.Status.Name)
	}
	if row.CreatedTime != "" {
		if t, err := time.Parse(time.RFC3339, row.CreatedTime); err == nil {
			contact.CreatedAt = t
		}
	}
	return contact, nil
}
