// Package storage defines the content file-system abstraction.
package storage

import "github.com/starford/folio/internal/models"

// Provider is the interface for content file operations.
type Provider interface {
	// List returns metadata for every post file under dir (relative to root).
	List(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}

// postExts are the file extensions treated as posts.
var postExts = []string{".md", ".mdx"}

// IsPostFile reports whether name has a post extension.
func IsPostFile(name string) bool {
	for _, ext := range postExts {
		if len(name) > len(ext) && name[len(name)-len(ext):] == ext {
			return true
		}
	}
	return false
}
