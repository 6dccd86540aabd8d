package index

import (
	"context"

	"github.com/starford/folio/internal/content"
	"github.com/starford/folio/internal/models"
)

// PostIndex defines the interface for post indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type PostIndex interface {
	content.Source
	UpsertPost(p models.Post, checksum, body string) error
	DeletePost(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Tags() (map[string]int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies PostIndex at compile time.
var _ PostIndex = (*DB)(nil)

// ListRecords is the content.Source view of the index.
func (db *DB) ListRecords(ctx context.Context) ([]models.Post, error) {
	return db.listPosts(ctx)
}
