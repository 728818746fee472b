// Package query is the uniform read/write layer over the document store.
// Every resource shares the same pagination, filtering, sorting, lookup,
// increment and upsert logic.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/storage"
)

// Resource names a collection in the store.
type Resource string

const (
	Users         Resource = "users"
	Posts         Resource = "posts"
	Comments      Resource = "comments"
	Tags          Resource = "tags"
	Announcements Resource = "announcements"
	Payments      Resource = "payments"
)

// Engine is safe for concurrent use; all state lives in the store.
type Engine struct {
	store storage.Store
	now   func() time.Time
}

// NewEngine returns an engine over store using the wall clock.
func NewEngine(store storage.Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithClock replaces the engine's time source. Used by tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Now is the engine clock in UTC.
func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

func (e *Engine) collection(r Resource) storage.Collection {
	return e.store.Collection(string(r))
}

// ParseID validates a hex object id. A malformed id is a client error.
func ParseID(field, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, core.InvalidInput(field, "must be a valid identifier")
	}
	return id, nil
}

// GetByID loads the record with the given hex id from r.
func GetByID[T any](ctx context.Context, e *Engine, r Resource, hexID string) (T, error) {
	var out T
	id, err := ParseID("id", hexID)
	if err != nil {
		return out, err
	}
	if err := e.collection(r).FindOne(ctx, storage.ByID(id), &out); err != nil {
		return out, err
	}
	return out, nil
}

// FindOne returns the first record in r matching filter, or core.ErrNotFound.
func FindOne[T any](ctx context.Context, e *Engine, r Resource, filter storage.Filter) (T, error) {
	var out T
	err := e.collection(r).FindOne(ctx, filter, &out)
	return out, err
}

// Count returns the number of records in r matching filter.
func Count(ctx context.Context, e *Engine, r Resource, filter storage.Filter) (int64, error) {
	return e.collection(r).Count(ctx, filter)
}

// Insert stores doc in r and returns its new id. A unique-field clash is
// reported as core.ErrConflict.
func Insert[T any](ctx context.Context, e *Engine, r Resource, doc T) (primitive.ObjectID, error) {
	id, err := e.collection(r).InsertOne(ctx, doc)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return id, fmt.Errorf("%s: %w", r, core.ErrConflict)
	}
	return id, err
}

// Increment adds delta to a numeric field of the record with the given id in
// a single store operation, so concurrent callers never lose an update.
func Increment(ctx context.Context, e *Engine, r Resource, id primitive.ObjectID, field string, delta int64) (int64, error) {
	return IncrementWhere(ctx, e, r, storage.ByID(id), field, delta)
}

// IncrementWhere is Increment for the first record matching filter.
func IncrementWhere(ctx context.Context, e *Engine, r Resource, filter storage.Filter, field string, delta int64) (int64, error) {
	res, err := e.collection(r).UpdateOne(ctx, filter, storage.Update{Inc: map[string]int64{field: delta}})
	if err != nil {
		return 0, err
	}
	if res.Matched == 0 {
		return 0, core.ErrNotFound
	}
	return res.Modified, nil
}

// SetFields updates only the named fields. A zero count with a nil error
// means the record exists but already held those values.
func SetFields(ctx context.Context, e *Engine, r Resource, id primitive.ObjectID, fields map[string]any) (int64, error) {
	return SetFieldsWhere(ctx, e, r, storage.ByID(id), fields)
}

// SetFieldsWhere is SetFields for the first record matching filter.
func SetFieldsWhere(ctx context.Context, e *Engine, r Resource, filter storage.Filter, fields map[string]any) (int64, error) {
	res, err := e.collection(r).UpdateOne(ctx, filter, storage.Update{Set: fields})
	if err != nil {
		return 0, err
	}
	if res.Matched == 0 {
		return 0, core.ErrNotFound
	}
	return res.Modified, nil
}

// Delete removes the record with the given id, or returns core.ErrNotFound.
func Delete(ctx context.Context, e *Engine, r Resource, id primitive.ObjectID) (int64, error) {
	n, err := e.collection(r).DeleteOne(ctx, storage.ByID(id))
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, core.ErrNotFound
	}
	return n, nil
}

// UpsertByKey returns the record whose field equals key, creating it from
// newRecord when none exists. An existing record is never overwritten. When
// a concurrent caller wins the insert, the unique index rejects ours and the
// winner's record is returned instead.
func UpsertByKey[T any](ctx context.Context, e *Engine, r Resource, field string, key any, newRecord func(now time.Time) T) (T, bool, error) {
	filter := storage.Filter{storage.Eq(field, key)}

	existing, err := FindOne[T](ctx, e, r, filter)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return existing, false, err
	}

	id, err := e.collection(r).InsertOne(ctx, newRecord(e.Now()))
	switch {
	case errors.Is(err, storage.ErrDuplicateKey):
		existing, err := FindOne[T](ctx, e, r, filter)
		return existing, false, err
	case err != nil:
		var zero T
		return zero, false, err
	}

	created, err := FindOne[T](ctx, e, r, storage.ByID(id))
	return created, true, err
}
