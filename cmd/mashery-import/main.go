package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bonobo-ops/keytools"
	"github.com/bonobo-ops/keytools/mashery"
	"github.com/bonobo-ops/keytools/runtime"
)

var version = "Dev"

func main() {
	os.Exit(run())
}

func run() int {
	config := keytools.LoadConfig("keytools.toml")

	if version != "Dev" {
		config.Version = version
	}

	if err := config.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	flush, err := keytools.ConfigureLogging(config, "mashery-import")
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

	logger.Info("starting mashery import", "source", config.MasheryKeysFile, "bonobo", config.BonoboURL, "dry_run", config.MasheryDryRun)

	// only local exports can be read without AWS credentials
	var s3c mashery.S3Getter
	if mashery.IsS3Source(config.MasheryKeysFile) {
		client, err := rt.S3(ctx)
		if err != nil {
			logger.Error("error creating S3 client", "error", err)
			return 1
		}
		s3c = client
	}

	importer := mashery.NewImporter(s3c, rt.HTTP, &mashery.Options{
		Source:    config.MasheryKeysFile,
		BonoboURL: config.BonoboURL,
		BatchSize: config.MasheryBatchSize,
		DryRun:    config.MasheryDryRun,
	})

	summary, err := importer.Run(ctx)
	if err != nil {
		logger.Error("mashery import failed", "error", err, "batches", summary.Batches)
		return 1
	}

	logger.Info("mashery import complete", "keys", summary.Keys, "users", summary.Users, "batches", summary.Batches)
	return 0
}
