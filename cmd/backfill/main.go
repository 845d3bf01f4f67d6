package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bonobo-ops/keytools"
	"github.com/bonobo-ops/keytools/backfill"
	"github.com/bonobo-ops/keytools/runtime"
)

var version = "Dev"

func main() {
	os.Exit(run())
}

func run() int {
	config := keytools.LoadConfig("keytools.toml")

	// if we have a custom version, use it
	if version != "Dev" {
		config.Version = version
	}

	if err := config.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	flush, err := keytools.ConfigureLogging(config, "backfill")
	if err != nil {
		log.Fatalf("error configuring logging: %s", err)
	}
	defer flush()

	logger := slog.With("comp", "main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := runtime.NewRuntime(ctx, config)
	if err != nil {
		logger.Error("error creating runtime", "error", err)
		return 1
	}

	dynamo, err := rt.Dynamo(ctx)
	if err != nil {
		logger.Error("error creating DynamoDB client", "error", err)
		return 1
	}

	logger.Info("starting backfill", "table", config.KeysTable, "cutoff", config.BackfillCutoff, "dry_run", config.BackfillDryRun)

	b := backfill.NewBackfiller(dynamo, config.KeysTable, &backfill.Options{
		Cutoff:   config.BackfillCutoff,
		PageSize: config.BackfillPageSize,
		MaxPages: config.BackfillMaxPages,
		DryRun:   config.BackfillDryRun,
	})

	summary, err := b.Run(ctx)
	if err != nil {
		logger.Error("backfill failed", "error", err, "updated", summary.Updated)
		return 1
	}

	logger.Info("backfill complete", "pages", summary.Pages, "scanned", summary.Scanned, "found", summary.Found, "matched", summary.Matched, "updated", summary.Updated)
	return 0
}
