package testorders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/okian/ordertriage/pkg/logger"
	"golang.org/x/sync/errgroup"
)

const maxResponseBody = 8 << 20

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request and returns status and body.
func (c *HTTPClient) Get(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (int, []byte, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) (int, []byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// submitOrders posts every submission with a bounded number of workers.
func submitOrders(ctx context.Context, cfg *Config, subs []Submission, stats *Stats) error {
	log := logger.Get().Named("testorders")
	log.Info(ctx, "submitting orders", logger.Int("count", len(subs)), logger.Int("workers", cfg.Workers))

	client := newHTTPClient(cfg.Timeout)
	url := cfg.BaseURL + "/orders"

	var accepted, duplicate, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i := range subs {
		sub := subs[i]
		g.Go(func() error {
			switch submitSingle(gctx, client, url, &sub) {
			case "accepted":
				accepted.Add(1)
			case "duplicate":
				duplicate.Add(1)
			default:
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(gctx, "submission failed", logger.String("eventID", sub.EventID))
				}
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.Submitted = len(subs)
	stats.Accepted = int(accepted.Load())
	stats.Duplicate = int(duplicate.Load())
	stats.Failed = int(failed.Load())
	log.Info(ctx, "order submission completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
	)
	return nil
}

// submitSingle returns "accepted", "duplicate" or "failed".
func submitSingle(ctx context.Context, client *HTTPClient, url string, sub *Submission) string {
	status, body, err := client.Post(ctx, url, sub)
	if err != nil {
		return "failed"
	}
	var ack AckResponse
	_ = json.Unmarshal(body, &ack)
	switch status {
	case http.StatusAccepted:
		return "accepted"
	case http.StatusOK:
		if ack.Duplicate {
			return "duplicate"
		}
		return "failed"
	default:
		return "failed"
	}
}

// getQueue fetches one ranked queue.
func getQueue(ctx context.Context, client *HTTPClient, baseURL, role string, n int) (QueueResponse, error) {
	status, body, err := client.Get(ctx, fmt.Sprintf("%s/queue/%s?limit=%d", baseURL, role, n))
	if err != nil {
		return QueueResponse{}, fmt.Errorf("request failed: %w", err)
	}
	if status != http.StatusOK {
		return QueueResponse{}, fmt.Errorf("HTTP %d: %s", status, string(body))
	}
	var q QueueResponse
	if err := json.Unmarshal(body, &q); err != nil {
		return QueueResponse{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return q, nil
}
