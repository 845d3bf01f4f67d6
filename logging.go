package keytools

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/nyaruka/gocommon/uuids"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry"
)

// ConfigureLogging sets the default logger for a run of the given job. Errors are also sent to Sentry
// if a DSN is configured, and the returned func should be called before exiting to flush them.
func ConfigureLogging(cfg *Config, job string) (func(), error) {
	level, err := cfg.ParseLogLevel()
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.LogLevel, err)
	}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	flush := func() {}

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, EnableTracing: false, Release: cfg.Version})
		if err != nil {
			return nil, fmt.Errorf("error initiating sentry client: %w", err)
		}

		handler = slogmulti.Fanout(handler, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
		flush = func() { sentry.Flush(2 * time.Second) }
	}

	slog.SetDefault(slog.New(handler).With("job", job, "run", uuids.New(), "version", cfg.Version))
	return flush, nil
}
