package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/render"
)

// Home handles GET / by redirecting to the best-matching localized listing.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	locale := h.catalog.Match(r.Header.Get("Accept-Language"))
	w.Header().Add("Vary", "Accept-Language")
	http.Redirect(w, r, render.PageURL("/"+locale, 1), http.StatusFound)
}

// PlainPosts handles GET /posts and GET /posts/page/{page}.
func (h *Handler) PlainPosts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		h.failHTML(w, r, err)
		return
	}
	l, err := h.svc.Listing(r.Context(), page, "")
	if err != nil {
		h.failHTML(w, r, err)
		return
	}
	h.writeHTML(w, r, h.renderer.PlainPage(l))
}

// LocalizedPosts handles GET /{locale}/posts and GET /{locale}/posts/page/{page}.
func (h *Handler) LocalizedPosts(w http.ResponseWriter, r *http.Request) {
	locale := chi.URLParam(r, "locale")
	if !h.catalog.Supports(locale) {
		http.NotFound(w, r)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		h.failHTML(w, r, err)
		return
	}
	l, err := h.svc.Listing(r.Context(), page, "")
	if err != nil {
		h.failHTML(w, r, err)
		return
	}
	w.Header().Set("Content-Language", locale)
	h.writeHTML(w, r, h.renderer.LocalizedPage(l, locale))
}

func (h *Handler) writeHTML(w http.ResponseWriter, r *http.Request, data render.PageData) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, data); err != nil {
		h.failHTML(w, r, err)
		return
	}
	etag := checksum.ETag(buf.Bytes())
	w.Header().Set("ETag", etag)
	if checksum.Matches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) failHTML(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	h.logFailure(r, status, err)
	http.Error(w, msg, status)
}
