package storage

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/brainshare/backend/internal/core"
)

const snapshotFile = "brainshare.json"

// MemoryStore is an in-process document store with the same filter, sort and
// derived-field semantics as MongoStore. It backs local development and tests.
// Documents round-trip through bson, so struct tags behave exactly as they do
// against Mongo.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string][]bson.M
	unique   map[string][]string
	snapshot *JSONStore
}

// NewMemoryStore returns an empty store that lives only in memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string][]bson.M),
		unique: make(map[string][]string),
	}
}

// NewPersistentMemoryStore loads and keeps a JSON snapshot in dataDir. Every
// successful write rewrites the snapshot.
func NewPersistentMemoryStore(dataDir string) (*MemoryStore, error) {
	js, err := NewJSONStore(dataDir, snapshotFile)
	if err != nil {
		return nil, err
	}

	docs, err := js.Load()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	s := NewMemoryStore()
	s.snapshot = js
	s.docs = docs
	return s, nil
}

func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

func (s *MemoryStore) EnsureUnique(_ context.Context, collection, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.unique[collection] {
		if f == field {
			return nil
		}
	}

	seen := make([]any, 0, len(s.docs[collection]))
	for _, d := range s.docs[collection] {
		v, ok := d[field]
		if !ok || v == nil {
			continue
		}
		for _, prev := range seen {
			if valuesEqual(prev, v) {
				return ErrDuplicateKey
			}
		}
		seen = append(seen, v)
	}

	s.unique[collection] = append(s.unique[collection], field)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close writes a final snapshot when one is configured.
func (s *MemoryStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *MemoryStore) persistLocked() error {
	if s.snapshot == nil {
		return nil
	}
	if err := s.snapshot.Save(s.docs); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// violatesUniqueLocked reports whether doc collides with any document other
// than skip on one of the collection's unique fields.
func (s *MemoryStore) violatesUniqueLocked(collection string, doc bson.M, skip int) bool {
	for _, field := range s.unique[collection] {
		v, ok := doc[field]
		if !ok || v == nil {
			continue
		}
		for i, other := range s.docs[collection] {
			if i == skip {
				continue
			}
			if ov, ok := other[field]; ok && valuesEqual(ov, v) {
				return true
			}
		}
	}
	return false
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) FindOne(ctx context.Context, filter Filter, out any) error {
	if err := ctx.Err(); err != nil {
		return core.Unavailable(err)
	}
	m, err := compileFilter(filter)
	if err != nil {
		return err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	for _, d := range c.store.docs[c.name] {
		if m.matches(d) {
			return decodeDoc(d, out)
		}
	}
	return core.ErrNotFound
}

func (c *memoryCollection) Find(ctx context.Context, filter Filter, opts FindOptions, out any) error {
	if err := ctx.Err(); err != nil {
		return core.Unavailable(err)
	}
	m, err := compileFilter(filter)
	if err != nil {
		return err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	matched := c.selectLocked(m)
	if len(opts.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, f := range opts.Sort {
				cmp := compareValues(matched[i][f.Field], matched[j][f.Field])
				if cmp == 0 {
					continue
				}
				if f.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	return decodeAll(window(matched, opts), out)
}

func (c *memoryCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, core.Unavailable(err)
	}
	m, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	return int64(len(c.selectLocked(m))), nil
}

func (c *memoryCollection) InsertOne(ctx context.Context, doc any) (primitive.ObjectID, error) {
	if err := ctx.Err(); err != nil {
		return primitive.NilObjectID, core.Unavailable(err)
	}
	d, err := toDocument(doc)
	if err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := d["_id"].(primitive.ObjectID)
	if !ok {
		if _, present := d["_id"]; present {
			return primitive.NilObjectID, fmt.Errorf("storage: _id must be an ObjectID")
		}
		id = primitive.NewObjectID()
		d["_id"] = id
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, other := range c.store.docs[c.name] {
		if other["_id"] == id {
			return primitive.NilObjectID, ErrDuplicateKey
		}
	}
	if c.store.violatesUniqueLocked(c.name, d, -1) {
		return primitive.NilObjectID, ErrDuplicateKey
	}

	c.store.docs[c.name] = append(c.store.docs[c.name], d)
	if err := c.store.persistLocked(); err != nil {
		return primitive.NilObjectID, err
	}
	return id, nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, filter Filter, update Update) (UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return UpdateResult{}, core.Unavailable(err)
	}
	m, err := compileFilter(filter)
	if err != nil {
		return UpdateResult{}, err
	}
	set := make(map[string]any, len(update.Set))
	for k, v := range update.Set {
		nv, err := normalize(v)
		if err != nil {
			return UpdateResult{}, err
		}
		set[k] = nv
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := c.store.docs[c.name]
	idx := -1
	for i, d := range docs {
		if m.matches(d) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return UpdateResult{}, nil
	}

	next := make(bson.M, len(docs[idx])+len(set)+len(update.Inc))
	for k, v := range docs[idx] {
		next[k] = v
	}

	changed := false
	for k, v := range set {
		if old, ok := next[k]; !ok || !reflect.DeepEqual(old, v) {
			changed = true
		}
		next[k] = v
	}
	for k, delta := range update.Inc {
		next[k] = addNumber(next[k], delta)
		if delta != 0 {
			changed = true
		}
	}

	if !changed {
		return UpdateResult{Matched: 1}, nil
	}
	if c.store.violatesUniqueLocked(c.name, next, idx) {
		return UpdateResult{}, ErrDuplicateKey
	}

	docs[idx] = next
	if err := c.store.persistLocked(); err != nil {
		return UpdateResult{}, err
	}
	return UpdateResult{Matched: 1, Modified: 1}, nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, filter Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, core.Unavailable(err)
	}
	m, err := compileFilter(filter)
	if err != nil {
		return 0, err
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	docs := c.store.docs[c.name]
	for i, d := range docs {
		if m.matches(d) {
			c.store.docs[c.name] = append(docs[:i:i], docs[i+1:]...)
			if err := c.store.persistLocked(); err != nil {
				return 0, err
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (c *memoryCollection) Aggregate(ctx context.Context, filter Filter, derived Derived, opts FindOptions, out any) error {
	if err := ctx.Err(); err != nil {
		return core.Unavailable(err)
	}
	m, err := compileFilter(filter)
	if err != nil {
		return err
	}

	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	matched := c.selectLocked(m)
	ranked := make([]bson.M, 0, len(matched))
	for _, d := range matched {
		r := make(bson.M, len(d)+1)
		for k, v := range d {
			r[k] = v
		}
		r[derived.Name] = subtract(d[derived.Minuend], d[derived.Subtrahend])
		ranked = append(ranked, r)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return compareValues(ranked[i][derived.Name], ranked[j][derived.Name]) > 0
	})
	return decodeAll(window(ranked, opts), out)
}

func (c *memoryCollection) selectLocked(m matcher) []bson.M {
	var out []bson.M
	for _, d := range c.store.docs[c.name] {
		if m.matches(d) {
			out = append(out, d)
		}
	}
	return out
}

func window(docs []bson.M, opts FindOptions) []bson.M {
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(docs)) {
			return nil
		}
		docs = docs[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(docs)) {
		docs = docs[:opts.Limit]
	}
	return docs
}

type compiledCondition struct {
	field string
	eq    any
	re    *regexp.Regexp
}

type matcher []compiledCondition

func compileFilter(filter Filter) (matcher, error) {
	m := make(matcher, 0, len(filter))
	for _, cond := range filter {
		switch cond.Op {
		case OpMatch:
			pattern, ok := cond.Value.(string)
			if !ok {
				return nil, fmt.Errorf("storage: pattern for %s must be a string", cond.Field)
			}
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, core.InvalidInput(cond.Field, "invalid pattern")
			}
			m = append(m, compiledCondition{field: cond.Field, re: re})
		default:
			v, err := normalize(cond.Value)
			if err != nil {
				return nil, err
			}
			m = append(m, compiledCondition{field: cond.Field, eq: v})
		}
	}
	return m, nil
}

func (m matcher) matches(d bson.M) bool {
	for _, cond := range m {
		v := d[cond.field]
		if cond.re != nil {
			if !anyElement(v, func(e any) bool {
				s, ok := e.(string)
				return ok && cond.re.MatchString(s)
			}) {
				return false
			}
			continue
		}
		if !anyElement(v, func(e any) bool { return valuesEqual(e, cond.eq) }) {
			return false
		}
	}
	return true
}

// anyElement applies fn to v, or to each element when v is an array, the way
// Mongo matches scalar conditions against array fields.
func anyElement(v any, fn func(any) bool) bool {
	if arr, ok := v.(primitive.A); ok {
		for _, e := range arr {
			if fn(e) {
				return true
			}
		}
		return false
	}
	return fn(v)
}

func toDocument(doc any) (bson.M, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("storage: encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("storage: decode document: %w", err)
	}
	return m, nil
}

// normalize converts a Go value into the representation bson decoding would
// produce, so stored and queried values compare consistently.
func normalize(v any) (any, error) {
	m, err := toDocument(bson.M{"v": v})
	if err != nil {
		return nil, err
	}
	return m["v"], nil
}

func decodeDoc(d bson.M, out any) error {
	b, err := bson.Marshal(d)
	if err != nil {
		return err
	}
	return bson.Unmarshal(b, out)
}

func decodeAll(docs []bson.M, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("storage: decode target must be a pointer to a slice, got %T", out)
	}
	sv := rv.Elem()
	elemType := sv.Type().Elem()
	result := reflect.MakeSlice(sv.Type(), 0, len(docs))
	for _, d := range docs {
		ev := reflect.New(elemType)
		if err := decodeDoc(d, ev.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, ev.Elem())
	}
	sv.Set(result)
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case primitive.DateTime:
		return float64(n), true
	}
	return 0, false
}

func valuesEqual(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders nil before everything else, then numbers, strings,
// ObjectIDs and booleans within their own kind.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case primitive.ObjectID:
		if bv, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(av[:], bv[:])
		}
	case bool:
		if bv, ok := b.(bool); ok && av != bv {
			if bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func addNumber(v any, delta int64) any {
	switch n := v.(type) {
	case int32:
		return int64(n) + delta
	case int64:
		return n + delta
	case float64:
		return n + float64(delta)
	}
	return delta
}

func subtract(a, b any) any {
	ia, aInt := asInt(a)
	ib, bInt := asInt(b)
	if aInt && bInt {
		return ia - ib
	}
	fa, _ := toFloat(a)
	fb, _ := toFloat(b)
	return fa - fb
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case nil:
		return 0, true
	}
	return 0, false
}
