package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/brainshare/backend/internal/access"
	"github.com/brainshare/backend/internal/config"
	"github.com/brainshare/backend/internal/middleware"
	"github.com/brainshare/backend/internal/models"
)

// Router bundles everything the HTTP surface needs.
type Router struct {
	Guard       *access.Guard
	Pinger      interface{ Ping(context.Context) error }
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
	Logger      *slog.Logger

	Auth     *AuthHandler
	Users    *UserHandler
	Posts    *PostHandler
	Comments *CommentHandler
	Catalog  *CatalogHandler
	Payments *PaymentHandler
	Admin    *AdminHandler
}

func (rt *Router) Handler(cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(rt.Logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	authenticated := middleware.Authenticate(rt.Guard, cfg.Auth.CookieName)
	limited := func(next http.Handler) http.Handler { return next }
	if rt.RateLimiter != nil {
		limited = rt.RateLimiter.Handler
	}

	r.Get("/health", rt.health)
	r.Post("/jwt", rt.Auth.IssueToken)
	r.Post("/logout", rt.Auth.Logout)

	r.Route("/users/{email}", func(r chi.Router) {
		r.Post("/", rt.Users.Register)
		r.Get("/role", rt.Users.Role)
		r.With(authenticated).Get("/profile", rt.Users.Profile)
		r.With(authenticated).Get("/posts", rt.Users.Posts)
	})

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", rt.Posts.List)
		r.With(authenticated).Post("/", rt.Posts.Create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", rt.Posts.Get)
			r.Get("/comments", rt.Posts.Comments)
			r.With(authenticated).Delete("/", rt.Posts.Delete)
			r.With(authenticated, limited).Patch("/upvote", rt.Posts.Upvote)
			r.With(authenticated, limited).Patch("/downvote", rt.Posts.Downvote)
		})
	})

	r.With(limited).Post("/comments", rt.Comments.Create)
	r.With(authenticated).Patch("/comments/{id}/report", rt.Comments.Report)

	r.Get("/tags", rt.Catalog.Tags)
	r.Get("/announcements", rt.Catalog.Announcements)
	r.Get("/announcements/count", rt.Catalog.AnnouncementCount)

	r.Route("/payments", func(r chi.Router) {
		r.Use(authenticated)
		r.With(limited).Post("/intent", rt.Payments.CreateIntent)
		r.Post("/", rt.Payments.Save)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticated, middleware.RequireRole(rt.Guard, models.RoleAdmin))
		r.Get("/users", rt.Admin.Users)
		r.Patch("/users/{email}/role", rt.Admin.Promote)
		r.Get("/comments/reported", rt.Admin.ReportedComments)
		r.Delete("/comments/{id}", rt.Admin.DeleteComment)
		r.Post("/announcements", rt.Admin.CreateAnnouncement)
		r.Post("/tags", rt.Admin.CreateTag)
		r.Get("/stats", rt.Admin.Stats)
	})

	return r
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := rt.Pinger.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, models.NewErrorResponse("Store unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{"status": "ok"}))
}
