// Package testutil provides shared test helpers for setting up sites and databases.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/synamic/internal/content"
	"github.com/starford/synamic/internal/index"
	"github.com/starford/synamic/internal/storage"
	"github.com/starford/synamic/internal/types"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "synamic-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Site is a temporary site with separate content and model directories.
type Site struct {
	Content  storage.Provider
	Models   storage.Provider
	Registry *types.Registry
	ModelSet *content.ModelSet
	Loader   *content.Loader
}

// TestSite creates a temporary site. modelFiles maps model names to their
// definitions and is written before the site is returned.
func TestSite(t *testing.T, modelFiles map[string]string) *Site {
	t.Helper()
	cs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ms, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for name, src := range modelFiles {
		if err := ms.Write(name+content.ModelExt, []byte(src)); err != nil {
			t.Fatal(err)
		}
	}
	reg := types.Default()
	set := content.NewModelSet(ms, reg)
	return &Site{
		Content:  cs,
		Models:   ms,
		Registry: reg,
		ModelSet: set,
		Loader:   content.NewLoader(cs, set, reg),
	}
}
