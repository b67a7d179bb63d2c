package testorders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/okian/ordertriage/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	directoryPermission = 0750
	filePermission      = 0600
	percentage          = 100
)

// Run generates orders, submits them, waits for the board to settle and
// verifies both ranked queues.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("testorders")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.Timeout)

	log.Info(ctx, "starting order triage load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("orders", cfg.NumOrders),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("topN", cfg.TopN),
	)

	if err := checkServiceHealth(ctx, client, cfg.BaseURL); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	subs := generateSubmissions(cfg, time.Now())
	stats.OrdersGenerated = cfg.NumOrders

	if err := submitOrders(ctx, cfg, subs, stats); err != nil {
		return stats, fmt.Errorf("order submission failed: %w", err)
	}

	log.Info(ctx, "waiting for updates to be applied", logger.Duration("settle", cfg.Settle))
	select {
	case <-ctx.Done():
		return stats, ctx.Err()
	case <-time.After(cfg.Settle):
	}

	limit, err := approvalLimit(ctx, client, cfg.BaseURL)
	if err != nil {
		return stats, fmt.Errorf("approval limit: %w", err)
	}

	for _, role := range []types.Role{types.RoleEvaluator, types.RoleSupervisor} {
		q, err := getQueue(ctx, client, cfg.BaseURL, string(role), cfg.TopN)
		if err != nil {
			return stats, fmt.Errorf("%s queue retrieval failed: %w", role, err)
		}
		if err := verifyQueue(role, q.Entries, limit); err != nil {
			return stats, fmt.Errorf("%s queue verification failed: %w", role, err)
		}
		if role == types.RoleEvaluator {
			stats.EvaluatorEntries = len(q.Entries)
		} else {
			stats.SupervisorEntries = len(q.Entries)
		}
		log.Info(ctx, "queue verified", logger.String("role", string(role)), logger.Int("entries", len(q.Entries)))
	}

	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, subs[:cfg.NumOrders]); err != nil {
			log.Warn(ctx, "failed to save orders to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, baseURL string) error {
	status, _, err := client.Get(ctx, baseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

// approvalLimit reads the limit the service is ranking with from /stats.
func approvalLimit(ctx context.Context, client *HTTPClient, baseURL string) (decimal.Decimal, error) {
	status, body, err := client.Get(ctx, baseURL+"/stats")
	if err != nil {
		return decimal.Zero, err
	}
	if status != http.StatusOK {
		return decimal.Zero, fmt.Errorf("HTTP %d", status)
	}
	var s struct {
		Limit decimal.Decimal `json:"approvalLimit"`
	}
	if err := json.Unmarshal(body, &s); err != nil {
		return decimal.Zero, err
	}
	if !s.Limit.IsPositive() {
		return decimal.Zero, fmt.Errorf("limit %s is not positive", s.Limit)
	}
	return s.Limit, nil
}

// saveSubmissions writes the generated orders as a JSON array.
func saveSubmissions(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(subs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal orders: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var acceptRate, perSecond float64
	if stats.Submitted > 0 {
		acceptRate = float64(stats.Accepted) / float64(stats.Submitted) * percentage
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("ordersGenerated", stats.OrdersGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Int("evaluatorEntries", stats.EvaluatorEntries),
		logger.Int("supervisorEntries", stats.SupervisorEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("submissionsPerSecond", perSecond),
	)
}
