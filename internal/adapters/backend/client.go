// Package backend reads orders from the sales backend's HTTP JSON API.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/pkg/logger"
	"github.com/shopspring/decimal"
)

// Backend API paths.
const (
	PathPendingOrders   = "/api/evaluador/pedidos-pendientes"
	PathEscalatedOrders = "/api/supervisor/pedidos-escalados"
	PathApprovalLimit   = "/api/evaluador/limite-aprobacion"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 8 << 20
)

// RecordError describes one list item that could not be decoded.
type RecordError struct {
	Index int
	Err   error
}

func (e RecordError) Error() string { return fmt.Sprintf("record %d: %v", e.Index, e.Err) }
func (e RecordError) Unwrap() error { return e.Err }

// Client fetches order lists. It is safe for concurrent use.
type Client struct {
	baseURL  *url.URL
	token    string
	http     *http.Client
	location *time.Location
	logger   logger.Logger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", baseURL)
	}
	c := &Client{
		baseURL:  u,
		http:     &http.Client{Timeout: defaultTimeout},
		location: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("backend")
	}
	return c, nil
}

// PendingOrders returns the evaluator's pending orders. Records that fail to
// decode are returned separately and do not fail the call.
func (c *Client) PendingOrders(ctx context.Context) ([]model.Order, []RecordError, error) {
	return c.orders(ctx, PathPendingOrders, nil)
}

// EscalatedOrders returns the supervisor's escalated orders.
func (c *Client) EscalatedOrders(ctx context.Context) ([]model.Order, []RecordError, error) {
	return c.orders(ctx, PathEscalatedOrders, url.Values{"prioridad": {"todas"}})
}

// ApprovalLimit returns the evaluator's approval ceiling.
func (c *Client) ApprovalLimit(ctx context.Context) (decimal.Decimal, error) {
	var body struct {
		Limit *decimal.Decimal `json:"limite"`
	}
	data, err := c.get(ctx, PathApprovalLimit, nil)
	if err != nil {
		return decimal.Zero, err
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: approval limit: %v", ErrDecode, err)
	}
	if body.Limit == nil || !body.Limit.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: approval limit missing or not positive", ErrDecode)
	}
	return *body.Limit, nil
}

func (c *Client) orders(ctx context.Context, path string, q url.Values) ([]model.Order, []RecordError, error) {
	data, err := c.get(ctx, path, q)
	if err != nil {
		return nil, nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	orders := make([]model.Order, 0, len(items))
	var bad []RecordError
	for i, raw := range items {
		o, err := DecodeOrder(raw, c.location)
		if err != nil {
			bad = append(bad, RecordError{Index: i, Err: err})
			c.logger.Warn(ctx, "skipping backend record",
				logger.String("path", path), logger.Int("index", i), logger.Error(err))
			continue
		}
		orders = append(orders, o)
	}
	return orders, bad, nil
}

// get performs the request and returns the envelope's data field.
func (c *Client) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	if env.Success != nil && !*env.Success {
		return nil, fmt.Errorf("%w: %s: %s", ErrRejected, path, env.Message)
	}
	return env.Data, nil
}
