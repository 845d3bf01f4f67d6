package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bonobo-ops/keytools/utils"
	"github.com/buger/jsonparser"
)

// Options control a plugin migration
type Options struct {
	GatewayURL string
	PageSize   int
	PluginName string
	TargetPath string
}

// ListURL is the URL of the first page of the plugin listing
func (o *Options) ListURL() string {
	return fmt.Sprintf("%s/plugins?size=%d", strings.TrimSuffix(o.GatewayURL, "/"), o.PageSize)
}

// TargetURL is where matching plugins are copied to
func (o *Options) TargetURL() string {
	return strings.TrimSuffix(o.GatewayURL, "/") + o.TargetPath
}

// Summary is what a migration run did
type Summary struct {
	Pages    int
	Seen     int
	Migrated int
}

// Migrator copies plugins of one type from the gateway's plugin listing to another endpoint. Source
// plugins are left in place and nothing tracks what has already been copied, so a re-run PUTs
// everything again.
type Migrator struct {
	client *http.Client
	opts   *Options
	log    *slog.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(client *http.Client, opts *Options) *Migrator {
	return &Migrator{
		client: client,
		opts:   opts,
		log:    slog.With("comp", "plugins", "plugin", opts.PluginName),
	}
}

// Run walks every page of the listing, following next links until a page has none
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}
	pageURL := m.opts.ListURL()

	for pageURL != "" {
		page, err := m.fetchPage(ctx, pageURL)
		if err != nil {
			return summary, err
		}
		summary.Pages++
		summary.Seen += len(page.Entries)
		m.log.Info("fetched page", "url", pageURL, "plugins", len(page.Entries))

		for _, entry := range page.Entries {
			name, err := jsonparser.GetString(entry, "name")
			if err != nil {
				return summary, fmt.Errorf("error reading plugin name on page %s: %w", pageURL, err)
			}
			if name != m.opts.PluginName {
				continue
			}

			plugin, err := ParsePlugin(entry)
			if err != nil {
				return summary, err
			}
			if err := m.put(ctx, plugin); err != nil {
				return summary, err
			}
			summary.Migrated++
			m.log.Info("migrated plugin", "consumer_id", plugin.Consumer())
		}

		pageURL = page.Next
	}

	return summary, nil
}

func (m *Migrator) fetchPage(ctx context.Context, pageURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating page request: %w", err)
	}

	trace, err := utils.MakeHTTPRequest(m.client, req)
	if err != nil {
		return nil, fmt.Errorf("error fetching plugins page: %w", err)
	}

	page, err := ParsePage(req.URL, trace.ResponseBody)
	if err != nil {
		return nil, fmt.Errorf("error parsing plugins page %s: %w", pageURL, err)
	}
	return page, nil
}

func (m *Migrator) put(ctx context.Context, plugin *Plugin) error {
	req, err := utils.NewJSONRequest(ctx, http.MethodPut, m.opts.TargetURL(), plugin)
	if err != nil {
		return fmt.Errorf("error creating plugin request: %w", err)
	}

	if _, err := utils.MakeHTTPRequest(m.client, req); err != nil {
		return fmt.Errorf("error putting plugin for consumer %s: %w", plugin.Consumer(), err)
	}
	return nil
}
