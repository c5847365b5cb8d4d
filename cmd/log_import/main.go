package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/2beens/tricoach/internal"
	"github.com/2beens/tricoach/internal/config"
	"github.com/2beens/tricoach/internal/logging"
	"github.com/2beens/tricoach/internal/training/workouts"

	log "github.com/sirupsen/logrus"
)

// imports an older workout log csv into the configured store

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	dryRun := flag.Bool("dry-run", false, "validate only, nothing is written")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <path-to-csv>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}
	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    cfg.LogLevel,
		Environment: cfg.Environment,
	})

	csvFile, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("open log: %s", err)
	}
	defer csvFile.Close()

	ctx := context.Background()
	store, dbPool, err := internal.OpenWorkoutStore(ctx, internal.OpenStoreParams{Config: cfg})
	if err != nil {
		log.Fatalf("workout store: %s", err)
	}
	if dbPool != nil {
		defer dbPool.Close()
	}

	importer := workouts.NewImporter(store, cfg.EFScaling, uint64(cfg.StoreRetryAttempts), *dryRun)
	result, err := importer.Import(ctx, csvFile)
	for _, skipped := range result.Skipped {
		log.Warnf("skipped row %d [%s]: %s", skipped.Seq, skipped.Date, skipped.Reason)
	}
	for _, dropped := range result.EFDropped {
		log.Warnf("row %d [%s]: logged EF %s not kept, %s", dropped.Seq, dropped.Date, dropped.StoredEF, dropped.Reason)
	}
	if len(result.EFDropped) > 0 {
		log.Warnf("%d imported rows have no EF, add heart rate and power or pace to chart them", len(result.EFDropped))
	}
	fmt.Printf("imported: %d, skipped: %d, without EF: %d\n", result.Imported, len(result.Skipped), len(result.EFDropped))
	if err != nil {
		log.Errorf("import stopped: %s", err)
		os.Exit(1)
	}
}
