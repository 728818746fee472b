package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/services"
)

// AdminHandler serves routes that sit behind RequireRole(admin).
type AdminHandler struct {
	users    *services.UserService
	comments *services.CommentService
	catalog  *services.CatalogService
	admin    *services.AdminService
	timeout  time.Duration
}

func NewAdminHandler(users *services.UserService, comments *services.CommentService, catalog *services.CatalogService, admin *services.AdminService, timeout time.Duration) *AdminHandler {
	return &AdminHandler{users: users, comments: comments, catalog: catalog, admin: admin, timeout: timeout}
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	params, err := query.ParsePageParams(r.URL.Query(), query.DefaultLimit)
	if err != nil {
		writeError(w, r, "ListUsers", err, "")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.users.List(ctx, r.URL.Query().Get("search"), params)
	if err != nil {
		writeError(w, r, "ListUsers", err, "Failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(page))
}

func (h *AdminHandler) Promote(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	email := chi.URLParam(r, "email")
	n, err := h.users.Promote(ctx, email)
	if err != nil {
		writeError(w, r, "PromoteUser", err, "Failed to update role")
		return
	}

	slog.InfoContext(ctx, "user promoted", "email", email, "by", callerEmail(r))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.UpdateResult{ModifiedCount: n}))
}

func (h *AdminHandler) ReportedComments(w http.ResponseWriter, r *http.Request) {
	params, err := query.ParsePageParams(r.URL.Query(), query.DefaultLimit)
	if err != nil {
		writeError(w, r, "ListReportedComments", err, "")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.comments.Reported(ctx, params)
	if err != nil {
		writeError(w, r, "ListReportedComments", err, "Failed to list comments")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(page))
}

func (h *AdminHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	n, err := h.comments.Delete(ctx, id)
	if err != nil {
		writeError(w, r, "DeleteComment", err, "Failed to delete comment")
		return
	}

	slog.InfoContext(ctx, "comment deleted", "id", id, "by", callerEmail(r))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.DeleteResult{DeletedCount: n}))
}

func (h *AdminHandler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAnnouncementRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	a, err := h.catalog.CreateAnnouncement(ctx, callerEmail(r), &req)
	if err != nil {
		writeError(w, r, "CreateAnnouncement", err, "Failed to create announcement")
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(a))
}

func (h *AdminHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTagRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	tag, err := h.catalog.CreateTag(ctx, &req)
	if err != nil {
		writeError(w, r, "CreateTag", err, "Failed to create tag")
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(tag))
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	stats, err := h.admin.Stats(ctx)
	if err != nil {
		writeError(w, r, "AdminStats", err, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(stats))
}
