// Package main runs the training MCP server over stdio (for local agent use).
// The same MCP server is also mounted on the main backend at /mcp over HTTP,
// so you can use either: stdio (this cmd) or the backend URL.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/2beens/tricoach/internal"
	"github.com/2beens/tricoach/internal/config"
	"github.com/2beens/tricoach/internal/telemetry/metrics"
	trainingmcp "github.com/2beens/tricoach/internal/training/mcp"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path to TOML config file")
	flag.Parse()

	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// no redis here, snapshots stay in process
	cfg.SnapshotCacheBackend = config.CacheBackendMemory

	ctx := context.Background()
	store, dbPool, err := internal.OpenWorkoutStore(ctx, internal.OpenStoreParams{Config: cfg})
	if err != nil {
		log.Fatalf("workout store: %v", err)
	}
	if dbPool != nil {
		defer dbPool.Close()
	}

	metricsManager := metrics.NewManager("tricoach", "mcp", prometheus.NewRegistry())
	analyzer, err := internal.NewAnalyzer(cfg, store, nil, metricsManager)
	if err != nil {
		log.Fatalf("analyzer: %v", err)
	}

	server := trainingmcp.NewServer(analyzer)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatal(err)
	}
}
