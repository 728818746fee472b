package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brainshare/backend/internal/models"
	"github.com/brainshare/backend/internal/services"
)

type CommentHandler struct {
	comments *services.CommentService
	timeout  time.Duration
}

func NewCommentHandler(comments *services.CommentService, timeout time.Duration) *CommentHandler {
	return &CommentHandler{comments: comments, timeout: timeout}
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCommentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.comments.Create(ctx, &req)
	if err != nil {
		writeError(w, r, "CreateComment", err, "Failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(c))
}

func (h *CommentHandler) Report(w http.ResponseWriter, r *http.Request) {
	var req models.ReportCommentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.comments.Report(ctx, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, r, "ReportComment", err, "Failed to report comment")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.UpdateResult{ModifiedCount: n}))
}
