// Package postservice applies site settings to the post listing pipeline.
package postservice

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/listing"
	"github.com/starford/folio/internal/models"
)

// TagCount is a tag and how many visible posts carry it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Searcher is implemented by sources that support full-text search.
type Searcher interface {
	Search(query string, limit int) ([]index.SearchResult, error)
}

// Service builds listings from a content source.
type Service struct {
	source     content.Source
	pageSize   int
	showDrafts bool
}

// NewService creates a new post service.
func NewService(source content.Source, pageSize int, showDrafts bool) *Service {
	return &Service{source: source, pageSize: pageSize, showDrafts: showDrafts}
}

// PageSize returns the configured number of posts per page.
func (s *Service) PageSize() int {
	return s.pageSize
}

// Listing returns the given page of visible posts, newest first. A non-empty
// tag keeps only posts carrying it, compared case-insensitively.
func (s *Service) Listing(ctx context.Context, page int, tag string) (*listing.Listing, error) {
	records, err := s.visible(ctx)
	if err != nil {
		return nil, err
	}
	if tag = strings.TrimSpace(tag); tag != "" {
		records = slices.DeleteFunc(records, func(p models.Post) bool {
			return !p.HasTag(tag)
		})
	}
	return listing.BuildPage(records, s.pageSize, page)
}

// Tags returns tag counts over visible posts, most used first, ties by name.
// Tags differing only in case are counted together.
func (s *Service) Tags(ctx context.Context) ([]TagCount, error) {
	records, err := s.visible(ctx)
	if err != nil {
		return nil, err
	}
	// Keyed by lower case, named by the first spelling seen.
	byKey := map[string]int{}
	var out []TagCount
	for _, p := range records {
		for _, t := range p.Tags {
			key := strings.ToLower(t)
			i, ok := byKey[key]
			if !ok {
				i = len(out)
				byKey[key] = i
				out = append(out, TagCount{Name: t})
			}
			out[i].Count++
		}
	}
	if out == nil {
		out = []TagCount{}
	}
	slices.SortFunc(out, func(a, b TagCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Search runs a full-text query when the source supports it.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	searcher, ok := s.source.(Searcher)
	if !ok {
		return nil, apperr.ErrUnsupported
	}
	res, err := searcher.Search(query, limit)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = []index.SearchResult{}
	}
	return res, nil
}

func (s *Service) visible(ctx context.Context) ([]models.Post, error) {
	records, err := s.source.ListRecords(ctx)
	if err != nil {
		return nil, err
	}
	if s.showDrafts {
		return records, nil
	}
	return slices.DeleteFunc(records, func(p models.Post) bool {
		return p.Draft
	}), nil
}
