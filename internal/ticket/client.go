package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cremix-io/deskbot/pkg/protocol"
)

// API is what the rest of the system needs from the ticket backend.
type API interface {
	// Create submits a ticket for a customer and returns the stored record.
	Create(ctx context.Context, sub protocol.TicketSubmission) (*protocol.Ticket, error)
	// List returns all tickets visible to the bot's credential.
	List(ctx context.Context) ([]protocol.Ticket, error)
	// Escalate bumps a ticket to urgent handling.
	Escalate(ctx context.Context, id string) (*protocol.Ticket, error)
	// Assign routes a ticket to an employee.
	Assign(ctx context.Context, id, employeeID string) (*protocol.Ticket, error)
	// UpdateStatus moves a ticket through its lifecycle.
	UpdateStatus(ctx context.Context, id string, status protocol.TicketStatus) (*protocol.Ticket, error)
}

// Client talks to the CRM ticket service over HTTP.
type Client struct {
	httpc   *http.Client
	baseURL string
	apiKey  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpc = h }
}

// NewClient creates a ticket backend client. apiKey may be empty when the
// backend does not require auth.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpc:   &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Create(ctx context.Context, sub protocol.TicketSubmission) (*protocol.Ticket, error) {
	var t protocol.Ticket
	path := "/tickets/customer/" + url.PathEscape(sub.CustomerID)
	if err := c.do(ctx, http.MethodPost, path, sub, &t); err != nil {
		return nil, fmt.Errorf("ticket: create: %w", err)
	}
	return &t, nil
}

// Get fetches one ticket by ID. Not part of API: the bot itself only ever
// creates tickets, but deskbotctl and operators want the lookup.
func (c *Client) Get(ctx context.Context, id string) (*protocol.Ticket, error) {
	var t protocol.Ticket
	path := "/tickets/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &t); err != nil {
		return nil, fmt.Errorf("ticket: get: %w", err)
	}
	return &t, nil
}

func (c *Client) List(ctx context.Context) ([]protocol.Ticket, error) {
	var tickets []protocol.Ticket
	if err := c.do(ctx, http.MethodGet, "/tickets", nil, &tickets); err != nil {
		return nil, fmt.Errorf("ticket: list: %w", err)
	}
	return tickets, nil
}

func (c *Client) Escalate(ctx context.Context, id string) (*protocol.Ticket, error) {
	var t protocol.Ticket
	path := "/tickets/" + url.PathEscape(id) + "/escalate"
	if err := c.do(ctx, http.MethodPut, path, nil, &t); err != nil {
		return nil, fmt.Errorf("ticket: escalate: %w", err)
	}
	return &t, nil
}

func (c *Client) Assign(ctx context.Context, id, employeeID string) (*protocol.Ticket, error) {
	var t protocol.Ticket
	path := "/tickets/" + url.PathEscape(id) + "/assign/" + url.PathEscape(employeeID)
	if err := c.do(ctx, http.MethodPut, path, nil, &t); err != nil {
		return nil, fmt.Errorf("ticket: assign: %w", err)
	}
	return &t, nil
}

func (c *Client) UpdateStatus(ctx context.Context, id string, status protocol.TicketStatus) (*protocol.Ticket, error) {
	var t protocol.Ticket
	path := "/tickets/" + url.PathEscape(id)
	body := map[string]protocol.TicketStatus{"status": status}
	if err := c.do(ctx, http.MethodPut, path, body, &t); err != nil {
		return nil, fmt.Errorf("ticket: update status: %w", err)
	}
	return &t, nil
}

// do performs one request against the backend and decodes the response
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend error (status %d): %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
