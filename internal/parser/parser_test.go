package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ndate: 2023-05-05\ntags:\n  - go\n  - blog\n---\n# Hello\n\nBody text.\n")
	r, err := Parse("posts/hello.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) != 2 || r.Tags[0] != "go" || r.Tags[1] != "blog" {
		t.Errorf("tags = %v, want [go blog]", r.Tags)
	}
	if r.Body != "# Hello\n\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if r.Date == nil {
		t.Error("expected raw date from front matter")
	}
	if r.Summary != "Body text." {
		t.Errorf("summary = %q", r.Summary)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r, err := Parse("posts/x.md", []byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
	if r.Date != nil {
		t.Errorf("date = %v, want nil", r.Date)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r, err := Parse("posts/x.md", []byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_Draft(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"---\ndraft: true\n---\nx", true},
		{"---\ndraft: \"true\"\n---\nx", true},
		{"---\ndraft: false\n---\nx", false},
		{"---\ntitle: t\n---\nx", false},
	}
	for _, c := range cases {
		r, _ := Parse("p.md", []byte(c.in))
		if r.Draft != c.want {
			t.Errorf("Parse(%q).Draft = %v, want %v", c.in, r.Draft, c.want)
		}
	}
}

func TestExtractTags_ListAndString(t *testing.T) {
	got := extractTags(map[string]any{"tags": []any{"Go", "go", " web ", ""}})
	if len(got) != 2 || got[0] != "Go" || got[1] != "web" {
		t.Errorf("tags = %v, want [Go web]", got)
	}
	got = extractTags(map[string]any{"tags": "a, b,a"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("tags = %v, want [a b]", got)
	}
	if got := extractTags(nil); got != nil {
		t.Errorf("tags = %v, want nil", got)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title := deriveTitle(map[string]any{"title": "FM Title"}, "# H1 Title\ntext", "a.md")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_FileStemFallback(t *testing.T) {
	title := deriveTitle(nil, "no heading here", "posts/my-first_post.mdx")
	if title != "My First Post" {
		t.Errorf("title = %q, want %q", title, "My First Post")
	}
}

func TestDeriveSummary_SkipsMDXPreamble(t *testing.T) {
	body := "import Chart from '../components/Chart'\n\n# Title\n\nFirst real\nparagraph.\n\nSecond."
	if got := deriveSummary(nil, body); got != "First real paragraph." {
		t.Errorf("summary = %q", got)
	}
	if got := deriveSummary(map[string]any{"summary": " given "}, body); got != "given" {
		t.Errorf("summary = %q, want front-matter value", got)
	}
}

func TestSlugFromPath(t *testing.T) {
	cases := []struct{ folder, path, want string }{
		{"posts", "posts/hello.md", "hello"},
		{"posts", "posts/2021/trip.mdx", "2021/trip"},
		{"", "about.md", "about"},
		{"posts/", "posts/a.md", "a"},
	}
	for _, c := range cases {
		if got := SlugFromPath(c.folder, c.path); got != c.want {
			t.Errorf("SlugFromPath(%q, %q) = %q, want %q", c.folder, c.path, got, c.want)
		}
	}
}

func TestParsePost_SlugOverride(t *testing.T) {
	p, err := ParsePost("posts", "posts/x.md", []byte("---\nslug: /custom/\ndate: 2021-01-01\n---\nhi"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Slug != "custom" {
		t.Errorf("slug = %q, want custom", p.Slug)
	}
	if p.Path != "posts/x.md" {
		t.Errorf("path = %q", p.Path)
	}
	if p.Tags == nil {
		t.Error("tags should be non-nil")
	}
	if p.RawDate == nil {
		t.Error("raw date should be carried over")
	}
}
