package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/folio/internal/listing"
	"github.com/starford/folio/internal/models"
)

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertPost inserts or replaces a post and its FTS entry within a transaction.
func (db *DB) UpsertPost(p models.Post, checksum, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	fmJSON, err := json.Marshal(p.Frontmatter)
	if err != nil || p.Frontmatter == nil {
		fmJSON = []byte("{}")
	}

	_, err = tx.Exec(`
		INSERT INTO posts (path, slug, title, summary, date, tags, draft, frontmatter, body, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			slug        = excluded.slug,
			title       = excluded.title,
			summary     = excluded.summary,
			date        = excluded.date,
			tags        = excluded.tags,
			draft       = excluded.draft,
			frontmatter = excluded.frontmatter,
			body        = excluded.body,
			checksum    = excluded.checksum,
			updated_at  = excluded.updated_at
	`, p.Path, p.Slug, p.Title, p.Summary, encodeDate(p.RawDate), string(tagsJSON), p.Draft,
		string(fmJSON), body, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}

	// No-op when the FTS5 build tag is absent.
	if err := ftsUpsert(tx, p.Path, p.Title, body, tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeletePost removes a post and its FTS entry.
func (db *DB) DeletePost(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM posts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete post: %w", err)
	}
	return tx.Commit()
}

// GetChecksum returns the stored checksum for a post, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path to checksum for every indexed post.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM posts`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Tags counts tag usage across non-draft posts.
func (db *DB) Tags() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT tags FROM posts WHERE draft = 0`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var tags []string
		_ = json.Unmarshal([]byte(raw), &tags)
		for _, t := range tags {
			out[t]++
		}
	}
	return out, rows.Err()
}

func (db *DB) listPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT path, slug, title, summary, date, tags, draft, frontmatter
		FROM posts
		ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list posts: %w", err)
	}
	defer rows.Close()

	out := []models.Post{}
	for rows.Next() {
		var (
			p        models.Post
			date     sql.NullString
			tagsJSON string
			fmJSON   string
		)
		if err := rows.Scan(&p.Path, &p.Slug, &p.Title, &p.Summary, &date, &tagsJSON, &p.Draft, &fmJSON); err != nil {
			return nil, fmt.Errorf("index: scan post: %w", err)
		}
		if date.Valid {
			p.RawDate = date.String
		}
		p.Tags = []string{}
		_ = json.Unmarshal([]byte(tagsJSON), &p.Tags)
		if fmJSON != "{}" {
			_ = json.Unmarshal([]byte(fmJSON), &p.Frontmatter)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// encodeDate stores a front-matter date as text. Times, and values the
// listing parser reads as times (YAML ints are unix seconds), are written in
// RFC 3339 so they parse back to the same instant. Anything else is kept as
// text and fails the same way on read. nil stays NULL.
func encodeDate(v any) any {
	switch d := v.(type) {
	case nil:
		return nil
	case string:
		return d
	case time.Time:
		return d.Format(time.RFC3339Nano)
	}
	if t, err := listing.ParseDate(v); err == nil {
		return t.Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}
