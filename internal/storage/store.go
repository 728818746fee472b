package storage

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicateKey is returned by InsertOne when a unique field already holds
// the inserted value.
var ErrDuplicateKey = errors.New("duplicate key")

// Store is a document database split into named collections.
type Store interface {
	Collection(name string) Collection
	// EnsureUnique asks the store to reject a second document with the same
	// value for field.
	EnsureUnique(ctx context.Context, collection, field string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Collection is the minimal set of document operations the query engine
// needs. Decoding targets use bson struct tags in both backends.
type Collection interface {
	FindOne(ctx context.Context, filter Filter, out any) error
	// Find decodes every match into out, which must point to a slice.
	Find(ctx context.Context, filter Filter, opts FindOptions, out any) error
	Count(ctx context.Context, filter Filter) (int64, error)
	InsertOne(ctx context.Context, doc any) (primitive.ObjectID, error)
	UpdateOne(ctx context.Context, filter Filter, update Update) (UpdateResult, error)
	DeleteOne(ctx context.Context, filter Filter) (int64, error)
	// Aggregate adds a derived field to each match, sorts by it descending
	// and applies skip/limit from opts.
	Aggregate(ctx context.Context, filter Filter, derived Derived, opts FindOptions, out any) error
}

type Op int

const (
	OpEq Op = iota
	// OpMatch is a case-insensitive regular expression match.
	OpMatch
)

type Condition struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter []Condition

// Eq matches documents whose field equals value. An array field matches
// when any element equals value.
func Eq(field string, value any) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// Contains matches documents whose field contains term, ignoring case.
// Regex metacharacters in term are escaped so user input is matched literally.
func Contains(field, term string) Condition {
	return Condition{Field: field, Op: OpMatch, Value: regexp.QuoteMeta(term)}
}

// ByID selects the document with the given id.
func ByID(id primitive.ObjectID) Filter {
	return Filter{Eq("_id", id)}
}

type SortField struct {
	Field string
	Desc  bool
}

type FindOptions struct {
	Sort  []SortField
	Skip  int64
	Limit int64 // 0 means no limit
}

// Update holds $set and $inc operands. Both may be used at once as long as
// they touch different fields.
type Update struct {
	Set map[string]any
	Inc map[string]int64
}

type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Derived describes a virtual field computed as Minuend - Subtrahend.
type Derived struct {
	Name       string
	Minuend    string
	Subtrahend string
}
