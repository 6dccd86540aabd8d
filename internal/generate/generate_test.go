package generate

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/i18n"
	"github.com/starford/folio/internal/listing"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/postservice"
	"github.com/starford/folio/internal/render"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/testutil"
)

func newGenerator(t *testing.T, src content.Source, pageSize int) (*Generator, string) {
	t.Helper()
	locales := []string{"en", "zh-TW"}
	catalog, err := i18n.Default("en", locales)
	if err != nil {
		t.Fatal(err)
	}
	renderer, err := render.New(render.Site{Title: "Folio"}, catalog)
	if err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()
	out, err := storage.NewFS(outDir)
	if err != nil {
		t.Fatal(err)
	}
	svc := postservice.NewService(src, pageSize, false)
	return New(svc, renderer, locales, out, testutil.QuietLogger()), outDir
}

func records(n int) content.Static {
	var out content.Static
	for i := range n {
		out = append(out, models.Post{
			Path:    "posts/p" + string(rune('a'+i)) + ".md",
			Slug:    "p" + string(rune('a'+i)),
			Title:   "Post " + string(rune('A'+i)),
			Tags:    []string{},
			RawDate: "2021-01-0" + string(rune('1'+i)),
		})
	}
	return out
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func TestRun_WritesEveryPage(t *testing.T) {
	g, outDir := newGenerator(t, records(5), 2)
	stats, err := g.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Pages != 3 || stats.Files != 10 {
		t.Errorf("stats = %+v, want 3 pages and 10 files", stats)
	}

	for _, name := range []string{
		"posts/index.html",
		"posts/page/2/index.html",
		"posts/page/3/index.html",
		"en/posts/index.html",
		"en/posts/page/3/index.html",
		"zh-TW/posts/index.html",
		"zh-TW/posts/page/2/index.html",
		"zh-TW/posts/page/3/index.html",
	} {
		readFile(t, outDir, name)
	}
	if _, err := os.Stat(filepath.Join(outDir, "posts", "page", "1")); !os.IsNotExist(err) {
		t.Error("page 1 should only be written at posts/index.html")
	}

	first := readFile(t, outDir, "posts/index.html")
	if !strings.Contains(first, "Post E") || strings.Contains(first, "Post A") {
		t.Errorf("page 1 should hold the newest posts")
	}
	last := readFile(t, outDir, "zh-TW/posts/page/3/index.html")
	if !strings.Contains(last, "Post A") || !strings.Contains(last, "所有文章 - Folio") {
		t.Errorf("localized last page content unexpected")
	}
}

func TestRun_ListingJSON(t *testing.T) {
	g, outDir := newGenerator(t, records(3), 2)
	if _, err := g.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	var l listing.Listing
	if err := json.Unmarshal([]byte(readFile(t, outDir, ListingFile)), &l); err != nil {
		t.Fatal(err)
	}
	if len(l.Posts) != 3 || len(l.InitialDisplayPosts) != 2 {
		t.Errorf("listing = %+v", l)
	}
	if l.Pagination != (listing.Pagination{CurrentPage: 1, TotalPages: 2}) {
		t.Errorf("pagination = %+v", l.Pagination)
	}
}

func TestRun_EmptyStillWritesFirstPage(t *testing.T) {
	g, outDir := newGenerator(t, content.Static{}, 2)
	stats, err := g.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Pages != 1 {
		t.Errorf("pages = %d, want 1", stats.Pages)
	}
	readFile(t, outDir, "posts/index.html")
	readFile(t, outDir, "en/posts/index.html")
}

func TestRun_BadDateAborts(t *testing.T) {
	src := append(records(2), models.Post{Path: "posts/bad.md", Slug: "bad", RawDate: "soon"})
	g, outDir := newGenerator(t, src, 2)
	_, err := g.Run(context.Background())
	var de *listing.DateError
	if !errors.As(err, &de) || de.Path != "posts/bad.md" {
		t.Fatalf("err = %v, want DateError for posts/bad.md", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "posts")); !os.IsNotExist(err) {
		t.Error("nothing should be written when the listing fails")
	}
}

func TestRun_CancelledContext(t *testing.T) {
	g, _ := newGenerator(t, records(5), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPagePath(t *testing.T) {
	cases := map[string]string{
		PagePath("", 1):       "posts/index.html",
		PagePath("", 2):       "posts/page/2/index.html",
		PagePath("/zh-TW", 1): "zh-TW/posts/index.html",
		PagePath("/en", 4):    "en/posts/page/4/index.html",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("PagePath = %q, want %q", got, want)
		}
	}
}
