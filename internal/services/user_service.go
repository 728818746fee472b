package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brainshare/backend/internal/core"
	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/storage"
)

// recentPostCount is how many posts a profile shows.
const recentPostCount = 3

type UserService struct {
	engine *query.Engine
}

// NewUserService creates a user service on engine.
func NewUserService(engine *query.Engine) *UserService {
	return &UserService{engine: engine}
}

// NormalizeEmail lowercases and validates an email taken from a path or body.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !models.IsEmail(email) {
		return "", core.InvalidInput("email", "email must be a valid email")
	}
	return email, nil
}

// Register creates the user on first contact and otherwise returns the
// stored record untouched. created reports which case happened.
func (s *UserService) Register(ctx context.Context, email string, req *models.RegisterUserRequest) (models.User, bool, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return models.User{}, false, err
	}
	return query.UpsertByKey(ctx, s.engine, query.Users, "email", email, func(now time.Time) models.User {
		return models.NewUser(email, req.Name, req.Photo, now)
	})
}

// GetByEmail returns the user with the normalized email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (models.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return models.User{}, err
	}
	user, err := query.FindOne[models.User](ctx, s.engine, query.Users, byEmail(email))
	if err != nil {
		return models.User{}, fmt.Errorf("user %s: %w", email, err)
	}
	return user, nil
}

func (s *UserService) Role(ctx context.Context, email string) (models.Role, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// Profile returns the user and their three newest posts.
func (s *UserService) Profile(ctx context.Context, email string) (models.Profile, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return models.Profile{}, err
	}
	recent, err := query.ListPage[models.Post](ctx, s.engine, query.Posts,
		storage.Filter{storage.Eq("author_email", user.Email)},
		query.PageParams{Page: 1, Limit: recentPostCount}, query.Newest...)
	if err != nil {
		return models.Profile{}, err
	}
	return models.Profile{User: user, RecentPosts: recent.Items}, nil
}

func (s *UserService) Posts(ctx context.Context, email string, params query.PageParams) (query.Page[models.Post], error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return query.Page[models.Post]{}, err
	}
	return query.ListPage[models.Post](ctx, s.engine, query.Posts,
		storage.Filter{storage.Eq("author_email", email)}, params, query.Newest...)
}

// List is the admin user directory, optionally filtered by a name search.
func (s *UserService) List(ctx context.Context, search string, params query.PageParams) (query.Page[models.User], error) {
	var filter storage.Filter
	if search = strings.TrimSpace(search); search != "" {
		filter = append(filter, storage.Contains("name", search))
	}
	return query.ListPage[models.User](ctx, s.engine, query.Users, filter, params,
		storage.SortField{Field: "timestamp", Desc: true}, storage.SortField{Field: "_id", Desc: true})
}

// Promote makes the user an admin. Promoting an admin again modifies nothing.
func (s *UserService) Promote(ctx context.Context, email string) (int64, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return 0, err
	}
	n, err := query.SetFieldsWhere(ctx, s.engine, query.Users, byEmail(email), map[string]any{"role": models.RoleAdmin})
	if err != nil {
		return 0, fmt.Errorf("promote %s: %w", email, err)
	}
	return n, nil
}

func byEmail(email string) storage.Filter {
	return storage.Filter{storage.Eq("email", email)}
}
