// Package generate writes the listing pages of both front ends as static files.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/listing"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/storage"
)

const (
	// ListingFile holds the page-1 listing as JSON.
	ListingFile = "posts.json"
	workers     = 4
)

// Stats summarises one build.
type Stats struct {
	Pages int
	Files int
}

// Generator renders every list page into an output provider.
type Generator struct {
	svc      *postservice.Service
	renderer *render.Renderer
	locales  []string
	out      storage.Provider
	logger   *slog.Logger
}

// New creates a generator writing to out. Each locale gets its own tree
// under <locale>/.
func New(svc *postservice.Service, renderer *render.Renderer, locales []string, out storage.Provider, logger *slog.Logger) *Generator {
	return &Generator{svc: svc, renderer: renderer, locales: locales, out: out, logger: logger}
}

type job struct {
	locale string // empty for the plain front end
	page   int
}

// Run lists the posts once, then renders every page of every front end.
// The first error cancels the remaining pages.
func (g *Generator) Run(ctx context.Context) (Stats, error) {
	first, err := g.svc.Listing(ctx, 1, "")
	if err != nil {
		return Stats{}, fmt.Errorf("generate: listing: %w", err)
	}
	pages := max(first.Pagination.TotalPages, 1)

	jobs := make([]job, 0, pages*(len(g.locales)+1))
	for n := 1; n <= pages; n++ {
		jobs = append(jobs, job{page: n})
		for _, loc := range g.locales {
			jobs = append(jobs, job{locale: loc, page: n})
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, j := range jobs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return g.writePage(first, j)
		})
	}
	if err := eg.Wait(); err != nil {
		return Stats{}, err
	}

	data, err := json.MarshalIndent(first, "", "  ")
	if err != nil {
		return Stats{}, fmt.Errorf("generate: encode listing: %w", err)
	}
	if err := g.out.Write(ListingFile, data); err != nil {
		return Stats{}, fmt.Errorf("generate: %w", err)
	}

	stats := Stats{Pages: pages, Files: len(jobs) + 1}
	g.logger.Info("generate: done",
		slog.Int("pages", stats.Pages),
		slog.Int("files", stats.Files),
		slog.Int("locales", len(g.locales)))
	return stats, nil
}

func (g *Generator) writePage(first *listing.Listing, j job) error {
	l := first
	if j.page > 1 {
		var err error
		// first.Posts is already ordered, so this only slices.
		l, err = listing.BuildPage(first.Posts, g.svc.PageSize(), j.page)
		if err != nil {
			return fmt.Errorf("generate: page %d: %w", j.page, err)
		}
	}

	var data render.PageData
	prefix := ""
	if j.locale == "" {
		data = g.renderer.PlainPage(l)
	} else {
		data = g.renderer.LocalizedPage(l, j.locale)
		prefix = "/" + j.locale
	}

	var buf bytes.Buffer
	if err := g.renderer.Render(&buf, data); err != nil {
		return err
	}
	name := PagePath(prefix, j.page)
	if err := g.out.Write(name, buf.Bytes()); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	g.logger.Debug("generate: wrote", slog.String("path", name))
	return nil
}

// PagePath returns the output file for a list page.
func PagePath(prefix string, page int) string {
	return strings.TrimPrefix(render.PageURL(prefix, page), "/") + "/index.html"
}
