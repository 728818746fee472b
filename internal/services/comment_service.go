package services

import (
	"context"
	"strings"

	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/storage"
)

// threadOrder lists a post's comments oldest first.
var threadOrder = []storage.SortField{{Field: "created_at"}, {Field: "_id"}}

type CommentService struct {
	engine *query.Engine
}

// NewCommentService creates a comment service on engine.
func NewCommentService(engine *query.Engine) *CommentService {
	return &CommentService{engine: engine}
}

// Create attaches a comment to an existing post.
func (s *CommentService) Create(ctx context.Context, req *models.CreateCommentRequest) (models.Comment, error) {
	post, err := query.GetByID[models.Post](ctx, s.engine, query.Posts, req.PostID)
	if err != nil {
		return models.Comment{}, err
	}

	c := models.Comment{
		PostID:    post.ID,
		PostTitle: post.Title,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Body:      strings.TrimSpace(req.Body),
		CreatedAt: s.engine.Now(),
	}
	id, err := query.Insert(ctx, s.engine, query.Comments, c)
	if err != nil {
		return models.Comment{}, err
	}
	c.ID = id
	return c, nil
}

// ListForPost pages through a post's comments, oldest first.
func (s *CommentService) ListForPost(ctx context.Context, postID string, params query.PageParams) (query.Page[models.Comment], error) {
	oid, err := query.ParseID("id", postID)
	if err != nil {
		return query.Page[models.Comment]{}, err
	}
	return query.ListPage[models.Comment](ctx, s.engine, query.Comments,
		storage.Filter{storage.Eq("post_id", oid)}, params, threadOrder...)
}

// Report flags a comment for moderation. Reporting it again with the same
// feedback modifies nothing.
func (s *CommentService) Report(ctx context.Context, id string, req *models.ReportCommentRequest) (int64, error) {
	oid, err := query.ParseID("id", id)
	if err != nil {
		return 0, err
	}
	return query.SetFields(ctx, s.engine, query.Comments, oid, map[string]any{
		"feedback": strings.TrimSpace(req.Feedback),
		"reported": true,
	})
}

// Reported pages through reported comments, newest first.
func (s *CommentService) Reported(ctx context.Context, params query.PageParams) (query.Page[models.Comment], error) {
	return query.ListPage[models.Comment](ctx, s.engine, query.Comments,
		storage.Filter{storage.Eq("reported", true)}, params, query.Newest...)
}

func (s *CommentService) Delete(ctx context.Context, id string) (int64, error) {
	oid, err := query.ParseID("id", id)
	if err != nil {
		return 0, err
	}
	return query.Delete(ctx, s.engine, query.Comments, oid)
}
