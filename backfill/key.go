package backfill

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Cutoff is the epoch millis a sensible createdAt will never be less than. Anything below it was
// written as epoch seconds.
const Cutoff int64 = 1000000000000

const (
	hashKeyAttr   = "hashkey"
	rangeKeyAttr  = "rangekey"
	createdAtAttr = "createdAt"
)

// Key is an API key record in the keys table
type Key struct {
	HashKey   string `dynamodbav:"hashkey"`
	RangeKey  string `dynamodbav:"rangekey"`
	KeyValue  string `dynamodbav:"keyValue,omitempty"`
	CreatedAt int64  `dynamodbav:"createdAt"`
}

func (k *Key) dynamoKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		hashKeyAttr:  &types.AttributeValueMemberS{Value: k.HashKey},
		rangeKeyAttr: &types.AttributeValueMemberS{Value: k.RangeKey},
	}
}

// Predicate selects the keys whose createdAt needs rescaling. The same predicate is used to build the
// scan filter and to check items client side so the two can't disagree.
type Predicate struct {
	Cutoff int64
}

// NewPredicate creates a new predicate matching createdAt values below the given cutoff
func NewPredicate(cutoff int64) *Predicate {
	return &Predicate{Cutoff: cutoff}
}

// Matches returns whether the given key needs rescaling
func (p *Predicate) Matches(k *Key) bool {
	return k.CreatedAt < p.Cutoff
}

// Condition returns the predicate as a DynamoDB condition for use as a scan filter
func (p *Predicate) Condition() expression.ConditionBuilder {
	return expression.Name(createdAtAttr).LessThan(expression.Value(p.Cutoff))
}

// Rescale converts a createdAt in epoch seconds to epoch millis
func Rescale(createdAt int64) int64 {
	return createdAt * 1000
}
