package query

import (
	"context"

	"github.com/brainshare/backend/internal/storage"
)

type SortKey string

const (
	SortNewest  SortKey = "newest"
	SortPopular SortKey = "popular"
)

// ParseSortKey maps the sort query parameter. Anything but "popular" sorts
// newest first.
func ParseSortKey(s string) SortKey {
	if s == string(SortPopular) {
		return SortPopular
	}
	return SortNewest
}

// Popularity is upVote - downVote, computed at query time so it always
// reflects the current vote counts.
var Popularity = storage.Derived{Name: "score", Minuend: "up_vote", Subtrahend: "down_vote"}

// Newest orders by creation time, newest first, with the id as tie-break.
var Newest = []storage.SortField{
	{Field: "created_at", Desc: true},
	{Field: "_id", Desc: true},
}

// SortedList lists matches by popularity or recency. Popularity ties keep
// insertion order.
func SortedList[T any](ctx context.Context, e *Engine, r Resource, filter storage.Filter, key SortKey, params PageParams) (Page[T], error) {
	if key != SortPopular {
		return ListPage[T](ctx, e, r, filter, params, Newest...)
	}

	col := e.collection(r)
	items := make([]T, 0)
	opts := storage.FindOptions{Skip: params.Skip(), Limit: params.Limit}
	if err := col.Aggregate(ctx, filter, Popularity, opts, &items); err != nil {
		return Page[T]{}, err
	}
	return paginate(ctx, col, filter, params, items)
}
