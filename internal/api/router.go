package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/folio/internal/i18n"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/render"
)

// Deps are the collaborators the router serves from.
type Deps struct {
	Service  *postservice.Service
	Renderer *render.Renderer
	Catalog  *i18n.Catalog
	Logger   *slog.Logger

	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
	// Reindex runs a full index sync. Nil disables POST /api/admin/reindex.
	Reindex func(ctx context.Context) (index.SyncStats, error)
	// Events, if non-nil, is mounted at GET /api/events.
	Events http.Handler

	AuthEnabled bool
	AuthToken   string
}

// NewRouter creates a chi router with the front ends and the JSON API mounted.
func NewRouter(d Deps) chi.Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	h := &Handler{
		svc:      d.Service,
		renderer: d.Renderer,
		catalog:  d.Catalog,
		logger:   d.Logger,
		ready:    d.Ready,
		reindex:  d.Reindex,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Get("/", h.Home)

	// Plain front end.
	r.Get("/posts", h.PlainPosts)
	r.Get("/posts/page/{page}", h.PlainPosts)

	// Localized front end.
	r.Get("/{locale}/posts", h.LocalizedPosts)
	r.Get("/{locale}/posts/page/{page}", h.LocalizedPosts)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", h.ListPosts)
		r.Get("/tags", h.Tags)
		r.Get("/search", h.Search)
		if d.Events != nil {
			r.Get("/events", d.Events.ServeHTTP)
		}
		r.With(AuthMiddleware(d.AuthEnabled, d.AuthToken)).Post("/admin/reindex", h.Reindex)
	})

	return r
}
