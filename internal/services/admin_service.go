package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/storage"
)

type AdminService struct {
	engine *query.Engine
}

// NewAdminService creates the dashboard service.
func NewAdminService(engine *query.Engine) *AdminService {
	return &AdminService{engine: engine}
}

// Stats counts every collection the dashboard shows. The counts run
// concurrently and the first failure cancels the rest.
func (s *AdminService) Stats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	g, ctx := errgroup.WithContext(ctx)

	count := func(dst *int64, r query.Resource, filter storage.Filter) {
		g.Go(func() error {
			n, err := query.Count(ctx, s.engine, r, filter)
			*dst = n
			return err
		})
	}
	count(&stats.Users, query.Users, nil)
	count(&stats.Posts, query.Posts, nil)
	count(&stats.Comments, query.Comments, nil)
	count(&stats.ReportedComments, query.Comments, storage.Filter{storage.Eq("reported", true)})
	count(&stats.Tags, query.Tags, nil)
	count(&stats.Announcements, query.Announcements, nil)

	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}
