package query

import (
	"context"
	"math"
	"net/url"
	"strconv"

	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/storage"
)

const (
	// DefaultLimit is the page size for comments, a user's posts and the
	// admin user list.
	DefaultLimit int64 = 5
	MaxLimit     int64 = 100
)

// PageParams selects one page of a listing. Limit 0 means unbounded: every
// match is returned and no page metadata is computed.
type PageParams struct {
	Page  int64
	Limit int64
}

func (p PageParams) Unbounded() bool { return p.Limit == 0 }

// Skip is the number of matches before the requested page.
func (p PageParams) Skip() int64 {
	if p.Unbounded() {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// ParsePageParams reads page and limit from a query string. Absent or
// non-numeric values fall back to page 1 and defaultLimit. defaultLimit 0
// marks an unbounded listing, where limit=0 is allowed and means "all".
func ParsePageParams(q url.Values, defaultLimit int64) (PageParams, error) {
	p := PageParams{Page: 1, Limit: defaultLimit}

	if n, ok := parseInt(q.Get("page")); ok {
		if n < 1 {
			return p, core.InvalidInput("page", "must be at least 1")
		}
		p.Page = n
	}

	if n, ok := parseInt(q.Get("limit")); ok {
		switch {
		case n < 0:
			return p, core.InvalidInput("limit", "must not be negative")
		case n == 0 && defaultLimit > 0:
			return p, core.InvalidInput("limit", "must be at least 1")
		}
		p.Limit = n
	}

	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if !p.Unbounded() && p.Page-1 > math.MaxInt64/p.Limit {
		return p, core.InvalidInput("page", "is out of range")
	}
	return p, nil
}

func parseInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// Pagination is omitted from the JSON output in unbounded mode.
type Pagination struct {
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int64 `json:"totalPages"`
	CurrentPage int64 `json:"currentPage"`
}

// Page is one slice of a listing plus its metadata.
type Page[T any] struct {
	Items []T `json:"items"`
	*Pagination
}

// TotalPages is ceil(total/limit), or 0 for an unbounded listing.
func TotalPages(total, limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// ListPage returns one page of matches in the given order. The total is a
// separate count over the same filter, so it does not depend on page size.
func ListPage[T any](ctx context.Context, e *Engine, r Resource, filter storage.Filter, params PageParams, sort ...storage.SortField) (Page[T], error) {
	col := e.collection(r)

	items := make([]T, 0)
	opts := storage.FindOptions{Sort: sort, Skip: params.Skip(), Limit: params.Limit}
	if err := col.Find(ctx, filter, opts, &items); err != nil {
		return Page[T]{}, err
	}
	return paginate(ctx, col, filter, params, items)
}

func paginate[T any](ctx context.Context, col storage.Collection, filter storage.Filter, params PageParams, items []T) (Page[T], error) {
	if items == nil {
		items = []T{}
	}
	page := Page[T]{Items: items}
	if params.Unbounded() {
		return page, nil
	}

	total, err := col.Count(ctx, filter)
	if err != nil {
		return Page[T]{}, err
	}
	page.Pagination = &Pagination{
		TotalCount:  total,
		TotalPages:  TotalPages(total, params.Limit),
		CurrentPage: params.Page,
	}
	return page, nil
}
