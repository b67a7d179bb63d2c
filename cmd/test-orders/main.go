package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/ordertriage/internal/testorders"
	"github.com/okian/ordertriage/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumOrders      = 2000
	defaultDuplicateRatio = 0.1
	defaultEscalatedRatio = 0.2
	defaultTopN           = 100
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultSettle         = 2 * time.Second
	defaultRunTimeout     = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numOrders  = flag.Int("orders", defaultNumOrders, "Number of orders to generate and submit")
		duplicates = flag.Float64("duplicates", defaultDuplicateRatio, "Share of submissions replayed with the same event id")
		escalated  = flag.Float64("escalated", defaultEscalatedRatio, "Share of orders generated as escalated")
		topN       = flag.Int("top", defaultTopN, "Number of queue entries to fetch and verify")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "Wait between submitting and verifying")
		seed       = flag.Uint64("seed", 0, "Random seed, 0 for random")
		outputFile = flag.String("output", "", "Write generated orders to this JSON file")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testorders.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &testorders.Config{
		BaseURL:        *baseURL,
		NumOrders:      *numOrders,
		DuplicateRatio: *duplicates,
		EscalatedRatio: *escalated,
		TopN:           *topN,
		Workers:        *workers,
		Timeout:        *timeout,
		Settle:         *settle,
		Seed:           *seed,
		OutputFile:     *outputFile,
		Verbose:        *verbose,
	}

	if _, err := testorders.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		cancel()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: cancel called above
	}
}
