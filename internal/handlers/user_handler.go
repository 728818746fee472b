package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/query"
	"github.com/brainshare/backend/internal/services"
)

type UserHandler struct {
	users   *services.UserService
	timeout time.Duration
}

func NewUserHandler(users *services.UserService, timeout time.Duration) *UserHandler {
	return &UserHandler{users: users, timeout: timeout}
}

// Register creates the user on first contact. Repeat calls return the
// stored record with 200 instead of 201.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterUserRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	user, created, err := h.users.Register(ctx, chi.URLParam(r, "email"), &req)
	if err != nil {
		writeError(w, r, "RegisterUser", err, "Failed to register user")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, models.NewSuccessResponse(user))
}

func (h *UserHandler) Role(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	role, err := h.users.Role(ctx, chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, r, "GetRole", err, "Failed to get role")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.RoleResponse{Role: role}))
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	profile, err := h.users.Profile(ctx, chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, r, "GetProfile", err, "Failed to get profile")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(profile))
}

func (h *UserHandler) Posts(w http.ResponseWriter, r *http.Request) {
	params, err := query.ParsePageParams(r.URL.Query(), query.DefaultLimit)
	if err != nil {
		writeError(w, r, "ListUserPosts", err, "")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.users.Posts(ctx, chi.URLParam(r, "email"), params)
	if err != nil {
		writeError(w, r, "ListUserPosts", err, "Failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(page))
}
