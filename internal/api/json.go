package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/postservice"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

type statusResponse struct {
	Status string `json:"status"`
}

// TagsResponse wraps tag counts.
type TagsResponse struct {
	Tags []postservice.TagCount `json:"tags"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// ReindexResponse reports one admin-triggered sync.
type ReindexResponse struct {
	Stats index.SyncStats `json:"stats"`
}
