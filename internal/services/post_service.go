package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/storage"
)

// PostFilter narrows the public post listing.
type PostFilter struct {
	Tag    string
	Search string
	Sort   query.SortKey
}

type PostService struct {
	engine *query.Engine
	// bronzeLimit caps posts per bronze member. Zero disables the cap.
	bronzeLimit int
}

// NewPostService creates a post service. bronzeLimit 0 disables the cap.
func NewPostService(engine *query.Engine, bronzeLimit int) *PostService {
	return &PostService{engine: engine, bronzeLimit: bronzeLimit}
}

// Create publishes a post for a registered author and bumps their post count.
func (s *PostService) Create(ctx context.Context, authorEmail string, req *models.CreatePostRequest) (models.Post, error) {
	author, err := query.FindOne[models.User](ctx, s.engine, query.Users, byEmail(authorEmail))
	if errors.Is(err, core.ErrNotFound) {
		return models.Post{}, fmt.Errorf("unregistered author %s: %w", authorEmail, core.ErrForbidden)
	}
	if err != nil {
		return models.Post{}, err
	}
	if author.Badge != models.BadgeGold && s.bronzeLimit > 0 && author.PostCount >= s.bronzeLimit {
		return models.Post{}, core.ErrPostLimitReached
	}

	// The count is taken before the insert and released if the insert fails.
	if _, err := query.IncrementWhere(ctx, s.engine, query.Users, byEmail(author.Email), "post_count", 1); err != nil {
		return models.Post{}, fmt.Errorf("count post for %s: %w", author.Email, err)
	}

	post := models.Post{
		AuthorEmail: author.Email,
		AuthorName:  author.Name,
		AuthorImage: author.Photo,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Tags:        normalizeTags(req.Tags),
		CreatedAt:   s.engine.Now(),
	}
	id, err := query.Insert(ctx, s.engine, query.Posts, post)
	if err != nil {
		if _, uerr := query.IncrementWhere(ctx, s.engine, query.Users, byEmail(author.Email), "post_count", -1); uerr != nil {
			slog.ErrorContext(ctx, "post count rollback failed", "email", author.Email, "error", uerr)
		}
		return models.Post{}, err
	}
	post.ID = id
	return post, nil
}

// Get returns a single post by its hex id.
func (s *PostService) Get(ctx context.Context, id string) (models.Post, error) {
	return query.GetByID[models.Post](ctx, s.engine, query.Posts, id)
}

// List returns posts matching f, newest or most popular first.
func (s *PostService) List(ctx context.Context, f PostFilter, params query.PageParams) (query.Page[models.Post], error) {
	var filter storage.Filter
	if tag := strings.TrimSpace(f.Tag); tag != "" {
		filter = append(filter, storage.Contains("tags", tag))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		filter = append(filter, storage.Contains("title", search))
	}
	return query.SortedList[models.Post](ctx, s.engine, query.Posts, filter, f.Sort, params)
}

// Delete removes a post. Only its author or an admin may do so.
func (s *PostService) Delete(ctx context.Context, callerEmail, id string) (int64, error) {
	post, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	if post.AuthorEmail != callerEmail {
		caller, err := query.FindOne[models.User](ctx, s.engine, query.Users, byEmail(callerEmail))
		switch {
		case errors.Is(err, core.ErrNotFound):
			return 0, core.ErrForbidden
		case err != nil:
			return 0, err
		case !caller.IsAdmin():
			return 0, fmt.Errorf("%s does not own post %s: %w", callerEmail, id, core.ErrForbidden)
		}
	}
	return query.Delete(ctx, s.engine, query.Posts, post.ID)
}

// Vote adds one up or down vote. Votes only ever increase.
func (s *PostService) Vote(ctx context.Context, id string, up bool) (int64, error) {
	oid, err := query.ParseID("id", id)
	if err != nil {
		return 0, err
	}
	field := "down_vote"
	if up {
		field = "up_vote"
	}
	return query.Increment(ctx, s.engine, query.Posts, oid, field, 1)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
