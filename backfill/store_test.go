package backfill_test

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/bonobo-ops/keytools/backfill"
)

// in-memory table which scans in insertion order
type memoryStore struct {
	items []map[string]types.AttributeValue

	// whether scans apply createdAt < cutoff themselves, otherwise every evaluated item is returned
	exactFilter bool
	cutoff      int64

	failScan    bool
	failUpdates int // fail once this many updates have succeeded (0 means never)
	tamper      bool

	scans   []*dynamodb.ScanInput
	updates []*dynamodb.UpdateItemInput
}

func newMemoryStore(exactFilter bool, keys ...*backfill.Key) *memoryStore {
	s := &memoryStore{exactFilter: exactFilter, cutoff: backfill.Cutoff}
	for _, k := range keys {
		item, err := attributevalue.MarshalMap(k)
		if err != nil {
			panic(err)
		}
		s.items = append(s.items, item)
	}
	return s
}

func (s *memoryStore) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	s.scans = append(s.scans, params)
	if s.failScan {
		return nil, errors.New("boom")
	}

	start := 0
	if params.ExclusiveStartKey != nil {
		start = s.indexOf(params.ExclusiveStartKey) + 1
	}
	end := min(start+int(*params.Limit), len(s.items))

	out := &dynamodb.ScanOutput{ScannedCount: int32(end - start)}
	for _, item := range s.items[start:end] {
		if !s.exactFilter || s.get(item).CreatedAt < s.cutoff {
			out.Items = append(out.Items, item)
		}
	}
	out.Count = int32(len(out.Items))

	if end < len(s.items) {
		last := s.get(s.items[end-1])
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"hashkey":  &types.AttributeValueMemberS{Value: last.HashKey},
			"rangekey": &types.AttributeValueMemberS{Value: last.RangeKey},
		}
	}
	return out, nil
}

func (s *memoryStore) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if s.failUpdates > 0 && len(s.updates) >= s.failUpdates {
		return nil, errors.New("throughput exceeded")
	}
	s.updates = append(s.updates, params)

	item := s.items[s.indexOf(params.Key)]

	var name string
	for _, n := range params.ExpressionAttributeNames {
		name = n
	}
	var value types.AttributeValue
	for _, v := range params.ExpressionAttributeValues {
		value = v
	}
	item[name] = value

	if s.tamper {
		value = &types.AttributeValueMemberN{Value: "123"}
	}
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{name: value}}, nil
}

func (s *memoryStore) indexOf(key map[string]types.AttributeValue) int {
	var k backfill.Key
	if err := attributevalue.UnmarshalMap(key, &k); err != nil {
		panic(err)
	}
	for i, item := range s.items {
		other := s.get(item)
		if other.HashKey == k.HashKey && other.RangeKey == k.RangeKey {
			return i
		}
	}
	panic("no such item")
}

func (s *memoryStore) get(item map[string]types.AttributeValue) *backfill.Key {
	k := &backfill.Key{}
	if err := attributevalue.UnmarshalMap(item, k); err != nil {
		panic(err)
	}
	return k
}

// createdAt values in table order
func (s *memoryStore) createdAts() []int64 {
	vals := make([]int64, len(s.items))
	for i, item := range s.items {
		vals[i] = s.get(item).CreatedAt
	}
	return vals
}
