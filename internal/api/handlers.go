package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/i18n"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/listing"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/render"
)

const readyTimeout = 2 * time.Second

// Handler holds route handlers.
type Handler struct {
	svc      *postservice.Service
	renderer *render.Renderer
	catalog  *i18n.Catalog
	logger   *slog.Logger
	ready    func(ctx context.Context) error
	reindex  func(ctx context.Context) (index.SyncStats, error)
}

var errBadPage = errors.New("page must be a positive integer")

// pageParam reads the page from the {page} URL parameter or the page query
// value. Absent means page 1.
func pageParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "page")
	if raw == "" {
		raw = r.URL.Query().Get("page")
	}
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, errBadPage
	}
	return page, nil
}

// statusFor maps a service error to an HTTP status and a client message.
func statusFor(err error) (int, string) {
	var dateErr *listing.DateError
	switch {
	case errors.Is(err, errBadPage):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrPageOutOfRange), errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrUnsupported):
		return http.StatusNotImplemented, "not supported"
	case errors.As(err, &dateErr):
		return http.StatusInternalServerError, "invalid post date"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) logFailure(r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	attrs := []any{
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	}
	var dateErr *listing.DateError
	if errors.As(err, &dateErr) {
		attrs = append(attrs, slog.String("post", dateErr.Path))
	}
	h.logger.Error("request failed", attrs...)
}

func (h *Handler) failJSON(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	h.logFailure(r, status, err)
	writeJSON(w, status, errorBody(msg))
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Ready handles GET /health/ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.logger.Warn("readiness check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// ListPosts handles GET /api/posts.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		h.failJSON(w, r, err)
		return
	}
	l, err := h.svc.Listing(r.Context(), page, r.URL.Query().Get("tag"))
	if err != nil {
		h.failJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// Tags handles GET /api/tags.
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		h.failJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{Tags: tags})
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		h.failJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Reindex handles POST /api/admin/reindex.
func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	if h.reindex == nil {
		h.failJSON(w, r, apperr.ErrUnsupported)
		return
	}
	stats, err := h.reindex(r.Context())
	if err != nil {
		h.failJSON(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReindexResponse{Stats: stats})
}
