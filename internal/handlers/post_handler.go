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

type PostHandler struct {
	posts    *services.PostService
	comments *services.CommentService
	timeout  time.Duration
}

func NewPostHandler(posts *services.PostService, comments *services.CommentService, timeout time.Duration) *PostHandler {
	return &PostHandler{posts: posts, comments: comments, timeout: timeout}
}

// List is unbounded unless the caller asks for a page.
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := query.ParsePageParams(q, 0)
	if err != nil {
		writeError(w, r, "ListPosts", err, "")
		return
	}
	filter := services.PostFilter{
		Tag:    q.Get("tag"),
		Search: q.Get("search"),
		Sort:   query.ParseSortKey(q.Get("sort")),
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.posts.List(ctx, filter, params)
	if err != nil {
		writeError(w, r, "ListPosts", err, "Failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(page))
}

func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	email := callerEmail(r)
	post, err := h.posts.Create(ctx, email, &req)
	if err != nil {
		writeError(w, r, "CreatePost", err, "Failed to create post")
		return
	}

	slog.InfoContext(ctx, "post created", "id", post.ID.Hex(), "email", email)
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(post))
}

func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	post, err := h.posts.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, "GetPost", err, "Failed to get post")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(post))
}

func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := chi.URLParam(r, "id")
	n, err := h.posts.Delete(ctx, callerEmail(r), id)
	if err != nil {
		writeError(w, r, "DeletePost", err, "Failed to delete post")
		return
	}

	slog.InfoContext(ctx, "post deleted", "id", id, "email", callerEmail(r))
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.DeleteResult{DeletedCount: n}))
}

func (h *PostHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, true)
}

func (h *PostHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, false)
}

func (h *PostHandler) vote(w http.ResponseWriter, r *http.Request, up bool) {
	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.posts.Vote(ctx, chi.URLParam(r, "id"), up)
	if err != nil {
		writeError(w, r, "Vote", err, "Failed to record vote")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.UpdateResult{ModifiedCount: n}))
}

func (h *PostHandler) Comments(w http.ResponseWriter, r *http.Request) {
	params, err := query.ParsePageParams(r.URL.Query(), query.DefaultLimit)
	if err != nil {
		writeError(w, r, "ListComments", err, "")
		return
	}

	ctx, cancel := contextWithTimeout(r.Context(), h.timeout)
	defer cancel()

	page, err := h.comments.ListForPost(ctx, chi.URLParam(r, "id"), params)
	if err != nil {
		writeError(w, r, "ListComments", err, "Failed to list comments")
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(page))
}
