// Package render turns listings into HTML pages for the plain and the
// localized front ends.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/folio/internal/i18n"
	"github.com/starford/folio/internal/listing"
)

//go:embed templates/*.html
var templates embed.FS

const plainDateFormat = "January 2, 2006"

// Site is the metadata shown on every page.
type Site struct {
	Title       string
	Description string
}

// PostView is one post as shown in a list.
type PostView struct {
	Slug     string
	Title    string
	DateISO  string
	DateText string
	Tags     []string
	Summary  template.HTML
}

// Pager links a page to its neighbours.
type Pager struct {
	Current  int
	Total    int
	PrevURL  string
	NextURL  string
	PrevText string
	NextText string
	Label    string
}

// PageData is everything the list template needs.
type PageData struct {
	Lang        string
	Title       string
	Heading     string
	Description string
	EmptyText   string
	Posts       []PostView
	Pager       Pager
}

// Renderer builds and renders list pages.
type Renderer struct {
	tmpl    *template.Template
	md      goldmark.Markdown
	site    Site
	catalog *i18n.Catalog
}

// New parses the embedded templates.
func New(site Site, catalog *i18n.Catalog) (*Renderer, error) {
	tmpl, err := template.New("base.html").ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	return &Renderer{
		tmpl:    tmpl,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
		site:    site,
		catalog: catalog,
	}, nil
}

// PlainPage builds the untranslated front end for the listing's current page.
func (r *Renderer) PlainPage(l *listing.Listing) PageData {
	p := l.Pagination
	return PageData{
		Lang:        r.catalog.DefaultLocale(),
		Title:       "Blog - " + r.site.Title,
		Heading:     "All Posts",
		Description: r.site.Description,
		EmptyText:   "No posts found.",
		Posts:       r.posts(l, plainDateFormat),
		Pager: r.pager(p, "", "Previous", "Next",
			fmt.Sprintf("%d of %d", p.CurrentPage, p.TotalPages)),
	}
}

// LocalizedPage builds the translated front end for the listing's current
// page in locale.
func (r *Renderer) LocalizedPage(l *listing.Listing, locale string) PageData {
	p := l.Pagination
	c := r.catalog
	allPosts := c.T(locale, "all-posts")
	return PageData{
		Lang:        locale,
		Title:       allPosts + " - " + r.site.Title,
		Heading:     allPosts,
		Description: c.T(locale, "about-me-description"),
		EmptyText:   c.T(locale, "no-posts"),
		Posts:       r.posts(l, c.T(locale, "date-format")),
		Pager: r.pager(p, "/"+locale, c.T(locale, "previous"), c.T(locale, "next"),
			c.Format(locale, "page-of",
				"current", strconv.Itoa(p.CurrentPage),
				"total", strconv.Itoa(p.TotalPages))),
	}
}

// Render writes the full HTML page for data.
func (r *Renderer) Render(w io.Writer, data PageData) error {
	if err := r.tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// PageURL returns the path of a list page. Page 1 lives at /posts.
func PageURL(prefix string, page int) string {
	if page <= 1 {
		return prefix + "/posts"
	}
	return prefix + "/posts/page/" + strconv.Itoa(page)
}

func (r *Renderer) posts(l *listing.Listing, dateFormat string) []PostView {
	out := make([]PostView, 0, len(l.InitialDisplayPosts))
	for _, p := range l.InitialDisplayPosts {
		out = append(out, PostView{
			Slug:     p.Slug,
			Title:    p.Title,
			DateISO:  p.Date.Format("2006-01-02"),
			DateText: p.Date.Format(dateFormat),
			Tags:     p.Tags,
			Summary:  r.markdown(p.Summary),
		})
	}
	return out
}

func (r *Renderer) pager(p listing.Pagination, prefix, prev, next, label string) Pager {
	pg := Pager{
		Current:  p.CurrentPage,
		Total:    p.TotalPages,
		PrevText: prev,
		NextText: next,
		Label:    label,
	}
	if p.CurrentPage > 1 {
		pg.PrevURL = PageURL(prefix, p.CurrentPage-1)
	}
	if p.CurrentPage < p.TotalPages {
		pg.NextURL = PageURL(prefix, p.CurrentPage+1)
	}
	return pg
}

// markdown converts a summary to HTML. Raw HTML in the source is dropped.
func (r *Renderer) markdown(src string) template.HTML {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}
