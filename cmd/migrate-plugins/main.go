package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bonobo-ops/keytools"
	"github.com/bonobo-ops/keytools/plugins"
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

	flush, err := keytools.ConfigureLogging(config, "migrate-plugins")
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

	opts := &plugins.Options{
		GatewayURL: config.GatewayURL,
		PageSize:   config.PluginsPageSize,
		PluginName: config.PluginName,
		TargetPath: config.PluginsTargetPath,
	}
	logger.Info("starting plugin migration", "from", opts.ListURL(), "to", opts.TargetURL())

	summary, err := plugins.NewMigrator(rt.HTTP, opts).Run(ctx)
	if err != nil {
		logger.Error("plugin migration failed", "error", err, "migrated", summary.Migrated)
		return 1
	}

	logger.Info("plugin migration complete", "pages", summary.Pages, "seen", summary.Seen, "migrated", summary.Migrated)
	return 0
}
