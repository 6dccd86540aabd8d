// Package models defines the domain types for folio.
package models

import (
	"strings"
	"time"
)

// Post is one content record: a Markdown or MDX file and its front matter.
type Post struct {
	Path    string   `json:"path"`
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags"`
	Draft   bool     `json:"draft,omitempty"`

	// RawDate is the front-matter date exactly as decoded. The listing
	// pipeline parses it and fills Date on the copies it returns.
	RawDate any       `json:"-"`
	Date    time.Time `json:"date"`

	Frontmatter map[string]any `json:"frontmatter,omitempty"`
}

// FileMetadata is a lightweight representation returned by storage listings.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasTag reports whether the post carries tag, ignoring case.
func (p Post) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
