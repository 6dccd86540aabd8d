// Package content provides the sources that supply unordered post records.
package content

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/storage"
)

// Source lists every post record. Order is not significant.
type Source interface {
	ListRecords(ctx context.Context) ([]models.Post, error)
}

// VaultSource reads posts straight from a storage provider.
type VaultSource struct {
	store  storage.Provider
	folder string
}

// NewVaultSource returns a source over the post files under folder.
func NewVaultSource(store storage.Provider, folder string) *VaultSource {
	return &VaultSource{store: store, folder: folder}
}

// ListRecords parses every post file under the folder, in byte order of path.
func (s *VaultSource) ListRecords(ctx context.Context) ([]models.Post, error) {
	metas, err := s.store.List(s.folder)
	if err != nil {
		return nil, fmt.Errorf("content: list: %w", err)
	}
	// Byte order, matching the index's ORDER BY path.
	slices.SortFunc(metas, func(a, b models.FileMetadata) int {
		return cmp.Compare(a.Path, b.Path)
	})
	out := make([]models.Post, 0, len(metas))
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.store.Read(m.Path)
		if err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}
		p, err := parser.ParsePost(s.folder, m.Path, data)
		if err != nil {
			return nil, fmt.Errorf("content: parse %s: %w", m.Path, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Static is a fixed record set.
type Static []models.Post

// ListRecords returns a copy of the records.
func (s Static) ListRecords(_ context.Context) ([]models.Post, error) {
	return slices.Clone([]models.Post(s)), nil
}

var (
	_ Source = (*VaultSource)(nil)
	_ Source = Static(nil)
)
