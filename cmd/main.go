package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/ordertriage/internal/adapters/backend"
	"github.com/okian/ordertriage/internal/adapters/feed"
	"github.com/okian/ordertriage/internal/adapters/http/api"
	"github.com/okian/ordertriage/internal/adapters/http/swagger"
	app "github.com/okian/ordertriage/internal/app"
	"github.com/okian/ordertriage/internal/config"
	"github.com/okian/ordertriage/internal/domain/types"
	"github.com/okian/ordertriage/pkg/logger"
	"github.com/okian/ordertriage/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "triage service failed", logger.Error(err))
		stop()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: stop called above
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	registerRuntimeCollectors(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	loc, _ := cfg.Location()
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, cfg.MaxQueueLimit, api.WithLocation(loc)).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService wires the triage service from configuration. Polling and the
// push feed are only enabled when their URLs are set.
func newService(cfg *config.Config, log logger.Logger) (*app.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithEvaluator(cfg.EvaluatorID, decimal.NewFromFloat(cfg.DefaultApprovalLimit)),
	}

	if cfg.BackendURL != "" {
		client, err := backend.NewClient(cfg.BackendURL,
			backend.WithToken(cfg.BackendToken),
			backend.WithTimeout(cfg.BackendTimeout),
			backend.WithLocation(loc),
			backend.WithLogger(log),
		)
		if err != nil {
			return nil, err
		}
		schedule, err := config.ParseSchedule(cfg.PollSchedule)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithPoller(client, schedule))
	}

	if cfg.FeedURL != "" {
		opts = append(opts, app.WithFeed(feed.EvaluatorURL(cfg.FeedURL, cfg.EvaluatorID),
			feed.WithBackoff(feed.Backoff{
				Initial:     cfg.FeedBackoffInitial,
				Max:         cfg.FeedBackoffMax,
				Multiplier:  cfg.FeedBackoffMultiplier,
				Jitter:      true,
				MaxAttempts: cfg.FeedMaxAttempts,
			}),
			feed.WithStableAfter(cfg.FeedStableAfter),
			feed.WithToken(cfg.BackendToken),
			feed.WithLocation(loc),
			feed.WithLogger(log),
		))
	}

	return app.New(opts...), nil
}

// registerRuntimeCollectors adds Go runtime and process metrics to /healthz.
func registerRuntimeCollectors(ctx context.Context) {
	reg := metrics.GetRegistry()
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		logger.Get().Warn(ctx, "go collector not registered", logger.Error(err))
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		logger.Get().Warn(ctx, "process collector not registered", logger.Error(err))
	}
}

// startServiceMetricsUpdater refreshes board gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics publishes the stats snapshot as gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if n, ok := stats["evaluatorOrders"].(int); ok {
		metrics.UpdateBoardOrders(string(types.RoleEvaluator), n)
	}
	if n, ok := stats["supervisorOrders"].(int); ok {
		metrics.UpdateBoardOrders(string(types.RoleSupervisor), n)
	}
	if connected, ok := stats["feedConnected"].(bool); ok {
		metrics.UpdateFeedConnected(connected)
	}
}
