package services

import (
	"context"
	"errors"
	"strings"

	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/storage"
)

// CatalogService owns tags and announcements.
type CatalogService struct {
	engine *query.Engine
}

// NewCatalogService creates the tag and announcement service.
func NewCatalogService(engine *query.Engine) *CatalogService {
	return &CatalogService{engine: engine}
}

// Tags returns every tag sorted by name.
func (s *CatalogService) Tags(ctx context.Context) ([]models.Tag, error) {
	page, err := query.ListPage[models.Tag](ctx, s.engine, query.Tags, nil, query.PageParams{Page: 1},
		storage.SortField{Field: "name"})
	return page.Items, err
}

// CreateTag stores a lowercase tag name. The name is unique.
func (s *CatalogService) CreateTag(ctx context.Context, req *models.CreateTagRequest) (models.Tag, error) {
	tag := models.Tag{
		Name:      strings.ToLower(strings.TrimSpace(req.Name)),
		CreatedAt: s.engine.Now(),
	}
	if tag.Name == "" {
		return models.Tag{}, core.InvalidInput("name", "name is required")
	}
	id, err := query.Insert(ctx, s.engine, query.Tags, tag)
	if err != nil {
		return models.Tag{}, err
	}
	tag.ID = id
	return tag, nil
}

func (s *CatalogService) Announcements(ctx context.Context) ([]models.Announcement, error) {
	page, err := query.ListPage[models.Announcement](ctx, s.engine, query.Announcements, nil,
		query.PageParams{Page: 1}, query.Newest...)
	return page.Items, err
}

func (s *CatalogService) AnnouncementCount(ctx context.Context) (int64, error) {
	return query.Count(ctx, s.engine, query.Announcements, nil)
}

func (s *CatalogService) CreateAnnouncement(ctx context.Context, authorEmail string, req *models.CreateAnnouncementRequest) (models.Announcement, error) {
	author, err := query.FindOne[models.User](ctx, s.engine, query.Users, byEmail(authorEmail))
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return models.Announcement{}, err
	}

	a := models.Announcement{
		AuthorEmail: authorEmail,
		AuthorName:  author.Name,
		AuthorImage: author.Photo,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		CreatedAt:   s.engine.Now(),
	}
	id, err := query.Insert(ctx, s.engine, query.Announcements, a)
	if err != nil {
		return models.Announcement{}, err
	}
	a.ID = id
	return a, nil
}
