package testorders

import "os"

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Order Triage Load Tool
======================

Submits synthetic orders to POST /orders, then checks that the ranked
evaluator and supervisor queues agree with local scoring.

Usage:
  go run ./cmd/test-orders [options]

Options:
  -url string         Base URL of the service (default "http://localhost:9080")
  -orders int         Number of orders to generate (default 2000)
  -duplicates float   Share of submissions replayed with the same event id (default 0.1)
  -escalated float    Share of orders generated as escalated (default 0.2)
  -top int            Queue entries to fetch and verify (default 100)
  -workers int        Concurrent submitters (default CPU cores * 2)
  -timeout duration   HTTP request timeout (default 30s)
  -settle duration    Wait before verifying (default 2s)
  -seed uint          Random seed, 0 for random (default 0)
  -output string      Write generated orders to this JSON file
  -verbose            Enable verbose logging
  -help               Show this help message

Examples:
  go run ./cmd/test-orders -orders 20000 -workers 32
  go run ./cmd/test-orders -seed 42 -output orders.json
`)
}
