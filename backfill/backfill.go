package backfill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Store is the part of the DynamoDB client the backfill needs
type Store interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Options control a backfill run
type Options struct {
	Cutoff   int64
	PageSize int
	MaxPages int // 0 means scan the whole table
	DryRun   bool
}

// Summary is what a backfill run did
type Summary struct {
	Pages   int
	Scanned int
	Found   int
	Matched int
	Updated int
}

// Backfiller rescales createdAt values written in epoch seconds to epoch millis
type Backfiller struct {
	store     Store
	table     string
	opts      *Options
	predicate *Predicate
	log       *slog.Logger
}

// NewBackfiller creates a new backfiller for the given table
func NewBackfiller(store Store, table string, opts *Options) *Backfiller {
	return &Backfiller{
		store:     store,
		table:     table,
		opts:      opts,
		predicate: NewPredicate(opts.Cutoff),
		log:       slog.With("comp", "backfill", "table", table),
	}
}

// Run scans the table and updates every key matching our predicate. Any store error stops the run,
// leaving updates already made in place.
func (b *Backfiller) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{}

	filter, err := expression.NewBuilder().WithFilter(b.predicate.Condition()).Build()
	if err != nil {
		return summary, fmt.Errorf("error building scan filter: %w", err)
	}

	var startKey map[string]types.AttributeValue

	for {
		out, err := b.store.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(b.table),
			Limit:                     aws.Int32(int32(b.opts.PageSize)),
			FilterExpression:          filter.Filter(),
			ExpressionAttributeNames:  filter.Names(),
			ExpressionAttributeValues: filter.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return summary, fmt.Errorf("error scanning table %s: %w", b.table, err)
		}

		summary.Pages++
		summary.Found += int(out.Count)
		summary.Scanned += int(out.ScannedCount)
		b.log.Info("scanned page", "page", summary.Pages, "found", out.Count, "scanned", out.ScannedCount)

		var keys []*Key
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &keys); err != nil {
			return summary, fmt.Errorf("error unmarshalling keys: %w", err)
		}

		for _, k := range keys {
			if !b.predicate.Matches(k) {
				continue
			}
			summary.Matched++

			updated := Rescale(k.CreatedAt)
			log := b.log.With("key", k.KeyValue, "rangekey", k.RangeKey, "created_at", k.CreatedAt, "updated_created_at", updated)

			if b.opts.DryRun {
				log.Info("would update createdAt")
				continue
			}

			if err := b.update(ctx, k, updated); err != nil {
				return summary, err
			}
			summary.Updated++
			log.Info("updated createdAt")
		}

		startKey = out.LastEvaluatedKey
		if len(startKey) == 0 || (b.opts.MaxPages > 0 && summary.Pages >= b.opts.MaxPages) {
			break
		}
	}

	return summary, nil
}

func (b *Backfiller) update(ctx context.Context, k *Key, createdAt int64) error {
	upd, err := expression.NewBuilder().WithUpdate(expression.Set(expression.Name(createdAtAttr), expression.Value(createdAt))).Build()
	if err != nil {
		return fmt.Errorf("error building update: %w", err)
	}

	out, err := b.store.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(b.table),
		Key:                       k.dynamoKey(),
		UpdateExpression:          upd.Update(),
		ExpressionAttributeNames:  upd.Names(),
		ExpressionAttributeValues: upd.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return fmt.Errorf("error updating key %s/%s: %w", k.HashKey, k.RangeKey, err)
	}

	// check what was written is what we asked for
	var written struct {
		CreatedAt int64 `dynamodbav:"createdAt"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &written); err != nil {
		return fmt.Errorf("error unmarshalling updated attributes: %w", err)
	}
	if written.CreatedAt != createdAt {
		return fmt.Errorf("update of key %s/%s returned createdAt %d, expected %d", k.HashKey, k.RangeKey, written.CreatedAt, createdAt)
	}

	return nil
}
