package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/models"
)

const tempPattern = ".folio-tmp-*"

// FS is a Provider backed by a directory on the local file system.
// All paths are slash-separated and relative to the root.
type FS struct {
	root string // absolute path
	fsys fs.FS  // read view of root
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, fsys: os.DirFS(abs)}, nil
}

// Root returns the absolute root directory.
func (f *FS) Root() string {
	return f.root
}

// Sub returns a read-only view of dir.
func (f *FS) Sub(dir string) (fs.FS, error) {
	name, err := localName(dir)
	if err != nil {
		return nil, err
	}
	if name == "." {
		return f.fsys, nil
	}
	return fs.Sub(f.fsys, name)
}

// localName turns rel into an fs.FS name, rejecting anything that would
// leave the root.
func localName(rel string) (string, error) {
	if rel == "" {
		return ".", nil
	}
	slashed := filepath.ToSlash(rel)
	if path.IsAbs(slashed) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	name := path.Clean(slashed)
	if !fs.ValidPath(name) {
		return "", fmt.Errorf("storage: path escapes root: %s", rel)
	}
	return name, nil
}

// List walks dir and returns metadata for every .md and .mdx file, in
// lexical order. A missing dir yields an empty list.
func (f *FS) List(dir string) ([]models.FileMetadata, error) {
	base, err := localName(dir)
	if err != nil {
		return nil, err
	}
	out := []models.FileMetadata{}
	if _, err := fs.Stat(f.fsys, base); errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	err = fs.WalkDir(f.fsys, base, func(name string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !IsPostFile(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(f.fsys, name)
		if err != nil {
			return err
		}
		out = append(out, models.FileMetadata{
			Path:      name,
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	return out, nil
}

// Read returns the raw bytes of a file.
func (f *FS) Read(name string) ([]byte, error) {
	local, err := localName(name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(f.fsys, local)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Write atomically replaces the file at name, creating parent directories.
func (f *FS) Write(name string, content []byte) error {
	local, err := localName(name)
	if err != nil {
		return err
	}
	if local == "." {
		return fmt.Errorf("storage: cannot write to root")
	}
	return writeAtomic(filepath.Join(f.root, filepath.FromSlash(local)), content, 0o644)
}

// writeAtomic writes data to a temp file beside dst, syncs it and renames
// it over dst, so readers see either the old or the new content.
func writeAtomic(dst string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(dst)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	// CreateTemp uses 0600.
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}
