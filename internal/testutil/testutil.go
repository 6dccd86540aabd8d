// Package testutil provides shared test helpers for content directories and indexes.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/storage"
)

// PostsFolder is the posts directory used by test content roots.
const PostsFolder = "posts"

// TestDB creates a temporary SQLite index over PostsFolder that is
// automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name(), PostsFolder)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestContent creates a temporary content root with a storage provider.
func TestContent(t *testing.T) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// WritePosts writes each name/content pair under PostsFolder.
func WritePosts(t *testing.T, store storage.Provider, posts map[string]string) {
	t.Helper()
	for name, content := range posts {
		if err := store.Write(PostsFolder+"/"+name, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// Post returns a minimal post file with the given front-matter fields.
func Post(title, date string, tags ...string) string {
	s := "---\ntitle: " + title + "\ndate: " + date + "\n"
	if len(tags) > 0 {
		s += "tags:\n"
		for _, tag := range tags {
			s += "  - " + tag + "\n"
		}
	}
	return s + "---\n" + title + " body.\n"
}

// QuietLogger discards everything below error level.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
