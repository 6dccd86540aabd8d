// Package parser extracts front matter and listing fields from Markdown and MDX posts.
package parser

import (
	"bytes"
	"path"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/starford/folio/internal/models"
)

// Result holds the output of parsing a post file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Summary     string
	Tags        []string
	Draft       bool
	Date        any
}

// Parse extracts front matter, body and the derived listing fields from raw
// file bytes. name is the file path, used for the title fallback.
func Parse(name string, data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body, name),
		Summary:     deriveSummary(fm, body),
		Tags:        extractTags(fm),
		Draft:       cast.ToBool(fm["draft"]),
		Date:        fm["date"],
	}, nil
}

// ParsePost parses data and builds the content record for the file at p.
// folder is the posts directory and is stripped from the slug.
func ParsePost(folder, p string, data []byte) (models.Post, error) {
	res, err := Parse(p, data)
	if err != nil {
		return models.Post{}, err
	}
	return res.Post(folder, p), nil
}

// Post builds the content record for the file at p from a parse result.
func (res *Result) Post(folder, p string) models.Post {
	slug := SlugFromPath(folder, p)
	if s, ok := res.Frontmatter["slug"].(string); ok && strings.TrimSpace(s) != "" {
		slug = strings.Trim(strings.TrimSpace(s), "/")
	}
	tags := res.Tags
	if tags == nil {
		tags = []string{}
	}
	return models.Post{
		Path:        p,
		Slug:        slug,
		Title:       res.Title,
		Summary:     res.Summary,
		Tags:        tags,
		Draft:       res.Draft,
		RawDate:     res.Date,
		Frontmatter: res.Frontmatter,
	}
}

// SlugFromPath returns p relative to folder without its extension,
// using forward slashes.
func SlugFromPath(folder, p string) string {
	p = strings.TrimPrefix(path.Clean(p), "./")
	folder = strings.Trim(path.Clean(folder), "/")
	if folder != "" && folder != "." {
		p = strings.TrimPrefix(p, folder+"/")
	}
	return strings.TrimSuffix(p, path.Ext(p))
}

// splitFrontmatter separates YAML front matter (between leading --- delimiters)
// from the body. If no front matter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML is treated as a file without front matter.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractTags collects the front-matter "tags" field, which may be a YAML
// list or a comma-separated string.
func extractTags(fm map[string]any) []string {
	var raw []string
	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(v, ",")
	}

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// deriveTitle returns the front-matter "title" if present, otherwise the
// first H1 heading, otherwise the file stem in title case.
func deriveTitle(fm map[string]any, body, name string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	if name == "" {
		return ""
	}
	stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
	stem = strings.NewReplacer("-", " ", "_", " ").Replace(stem)
	// A Caser is stateful, so each call gets its own.
	return cases.Title(language.English).String(stem)
}

// deriveSummary returns the front-matter "summary" if present, otherwise
// the first paragraph of the body that is not a heading or an MDX
// import/export statement.
func deriveSummary(fm map[string]any, body string) string {
	if s, ok := fm["summary"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	for _, block := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || skipBlock(block) {
			continue
		}
		return strings.Join(strings.Fields(block), " ")
	}
	return ""
}

func skipBlock(block string) bool {
	for _, prefix := range []string{"#", "import ", "export ", "```", "<"} {
		if strings.HasPrefix(block, prefix) {
			return true
		}
	}
	return false
}
