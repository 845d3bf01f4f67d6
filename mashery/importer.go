package mashery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bonobo-ops/keytools/utils"
	"github.com/samber/lo"
)

// Options control an import
type Options struct {
	Source    string
	BonoboURL string
	BatchSize int
	DryRun    bool
}

// Summary is what an import did
type Summary struct {
	Keys    int
	Users   int
	Batches int
}

// Importer loads a Mashery keys export and uploads it to Bonobo's migrate endpoint
type Importer struct {
	s3     S3Getter
	client *http.Client
	opts   *Options
	log    *slog.Logger
}

// NewImporter creates a new importer
func NewImporter(s3c S3Getter, client *http.Client, opts *Options) *Importer {
	return &Importer{s3: s3c, client: client, opts: opts, log: slog.With("comp", "mashery")}
}

// Run loads, converts and uploads. Batches already uploaded when an error occurs stay uploaded.
func (i *Importer) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	r, err := OpenSource(ctx, i.s3, i.opts.Source)
	if err != nil {
		return summary, err
	}
	defer r.Close()

	keys, err := ReadKeys(r)
	if err != nil {
		return summary, err
	}
	summary.Keys = len(keys)
	i.log.Info("loaded mashery keys", "source", i.opts.Source, "keys", len(keys))

	groups := GroupByMember(keys)
	i.log.Info("grouped keys by member", "users", len(groups))

	users, err := Convert(groups)
	if err != nil {
		return summary, err
	}
	summary.Users = len(users)

	for _, batch := range lo.Chunk(users, i.opts.BatchSize) {
		if i.opts.DryRun {
			i.log.Info("would upload batch", "users", len(batch), "first_id", batch[0].ID)
		} else if err := i.upload(ctx, batch); err != nil {
			return summary, err
		}
		summary.Batches++
	}

	return summary, nil
}

func (i *Importer) upload(ctx context.Context, batch []*User) error {
	url := strings.TrimSuffix(i.opts.BonoboURL, "/") + "/migrate"

	req, err := utils.NewJSONRequest(ctx, http.MethodPost, url, batch)
	if err != nil {
		return fmt.Errorf("error creating migrate request: %w", err)
	}

	trace, err := utils.MakeHTTPRequest(i.client, req)
	if err != nil {
		return fmt.Errorf("error uploading batch of %d users: %w", len(batch), err)
	}

	i.log.Info("uploaded batch", "users", len(batch), "status", trace.Response.StatusCode, "response", string(trace.ResponseBody))
	return nil
}
