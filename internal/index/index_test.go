package index

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/starford/synamic/internal/apperr"
	"github.com/starford/synamic/internal/content"
	"github.com/starford/synamic/internal/storage"
	"github.com/starford/synamic/internal/types"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "synamic-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testLoader(t *testing.T, models map[string]string) (*storage.FS, *content.Loader) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	modelStore, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for name, src := range models {
		if err := modelStore.Write(name+content.ModelExt, []byte(src)); err != nil {
			t.Fatal(err)
		}
	}
	reg := types.Default()
	return store, content.NewLoader(store, content.NewModelSet(modelStore, reg), reg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"contents", "marks", "unique_values"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	row := ContentRow{
		Path:     "hello.md",
		Model:    "content",
		Title:    "Hello World",
		Checksum: "abc123",
		Fields:   json.RawMessage(`{"title":"Hello World"}`),
	}
	marks := []MarkRow{{Field: "tags", Key: "go", Title: "Go"}}
	if err := db.UpsertContent(row, "This is a hello world page.", marks, nil); err != nil {
		t.Fatalf("UpsertContent: %v", err)
	}
	cs, err := db.GetChecksum("hello.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	got, err := db.GetContent("hello.md")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if got.Title != "Hello World" || got.Status != StatusValid || string(got.Fields) != `{"title":"Hello World"}` {
		t.Errorf("row = %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}
}

func TestGetContent_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetContent("nope.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	cs, err := db.GetChecksum("nope.md")
	if err != nil || cs != "" {
		t.Errorf("GetChecksum = %q, %v", cs, err)
	}
}

func TestMarks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertContent(ContentRow{Path: "a.md", Title: "A", Checksum: "1"}, "body", []MarkRow{{"tags", "go", "Go"}, {"tags", "web", "Web"}}, nil)
	_ = db.UpsertContent(ContentRow{Path: "b.md", Title: "B", Checksum: "2"}, "body", []MarkRow{{"categories", "go", "Go"}}, nil)

	hits, err := db.ContentsByMark("go")
	if err != nil {
		t.Fatalf("ContentsByMark: %v", err)
	}
	if len(hits) != 2 || hits[0].Path != "a.md" || hits[1].Field != "categories" {
		t.Errorf("hits = %+v", hits)
	}

	counts, err := db.Marks()
	if err != nil {
		t.Fatalf("Marks: %v", err)
	}
	if len(counts) != 2 || counts[0].Key != "go" || counts[0].Count != 2 {
		t.Errorf("counts = %+v", counts)
	}

	rows, total, err := db.ListContents(10, 0, "web", "")
	if err != nil {
		t.Fatalf("ListContents: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Path != "a.md" {
		t.Errorf("list by mark = %d %+v", total, rows)
	}
}

func TestListContents_SortAndPage(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertContent(ContentRow{Path: "c.md", Title: "alpha", Checksum: "1"}, "", nil, nil)
	_ = db.UpsertContent(ContentRow{Path: "a.md", Title: "Charlie", Checksum: "2"}, "", nil, nil)
	_ = db.UpsertContent(ContentRow{Path: "b.md", Title: "bravo", Checksum: "3"}, "", nil, nil)

	rows, total, err := db.ListContents(2, 0, "", "title")
	if err != nil {
		t.Fatalf("ListContents: %v", err)
	}
	if total != 3 || len(rows) != 2 || rows[0].Title != "alpha" || rows[1].Title != "bravo" {
		t.Errorf("page 1 = %d %+v", total, rows)
	}
	rows, _, _ = db.ListContents(2, 2, "", "path")
	if len(rows) != 1 || rows[0].Path != "c.md" {
		t.Errorf("page 2 = %+v", rows)
	}
}

func TestUniqueConflict(t *testing.T) {
	db := testDB(t)
	u := []UniqueRow{{Field: "slug", Value: "same"}}
	if err := db.UpsertContent(ContentRow{Path: "a.md", Model: "post", Checksum: "1"}, "", nil, u); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// Same path may keep its own value.
	if err := db.UpsertContent(ContentRow{Path: "a.md", Model: "post", Checksum: "2"}, "", nil, u); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	err := db.UpsertContent(ContentRow{Path: "b.md", Model: "post", Checksum: "3"}, "", nil, u)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if cs, _ := db.GetChecksum("b.md"); cs != "" {
		t.Error("conflicting row should not be stored")
	}
	// Another model may reuse the value.
	if err := db.UpsertContent(ContentRow{Path: "c.md", Model: "page", Checksum: "4"}, "", nil, u); err != nil {
		t.Errorf("other model: %v", err)
	}
	// Deleting frees the value.
	_ = db.DeleteContent("a.md")
	if err := db.UpsertContent(ContentRow{Path: "b.md", Model: "post", Checksum: "3"}, "", nil, u); err != nil {
		t.Errorf("after delete: %v", err)
	}
}

func TestMarkInvalid(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertContent(ContentRow{Path: "x.md", Title: "X", Checksum: "1"}, "findme", []MarkRow{{"tags", "t", "T"}}, nil)

	if err := db.MarkInvalid("x.md", "2", "syd: line 3: boom"); err != nil {
		t.Fatalf("MarkInvalid: %v", err)
	}
	got, err := db.GetContent("x.md")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if got.Status != StatusInvalid || got.Checksum != "2" || !strings.Contains(got.Error, "line 3") {
		t.Errorf("row = %+v", got)
	}
	if hits, _ := db.ContentsByMark("t"); len(hits) != 0 {
		t.Error("marks of invalid content should be dropped")
	}
	if results, _ := db.Search("findme", 10); len(results) != 0 {
		t.Error("invalid content should not be searchable")
	}
}

func TestDeleteContent(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertContent(ContentRow{Path: "del.md", Checksum: "x"}, "body", []MarkRow{{"tags", "k", "K"}}, nil)

	if err := db.DeleteContent("del.md"); err != nil {
		t.Fatalf("DeleteContent: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted content still has checksum %q", cs)
	}
	if hits, _ := db.ContentsByMark("k"); len(hits) != 0 {
		t.Errorf("expected 0 mark hits after delete, got %d", len(hits))
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertContent(ContentRow{Path: "s.md", Title: "Search Me", Checksum: "1"}, "uniqueword appears here", nil, nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	store, loader := testLoader(t, map[string]string{"post": "slug: string | unique"})
	_ = store.Write("good.md", []byte("---\ntitle: Good\ntags: (Go)\n---\nhello"))
	_ = store.Write("bad.md", []byte("---\ntitle: x\n"))
	_ = store.Write("p1.md", []byte("---\nmodel: post\nslug: s\n---\n"))
	_ = store.Write("p2.md", []byte("---\nmodel: post\nslug: s\n---\n"))
	_ = store.Write("notes.txt", []byte("ignored"))

	if err := Sync(db, store, loader, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	good, err := db.GetContent("good.md")
	if err != nil || good.Status != StatusValid || good.Title != "Good" {
		t.Fatalf("good = %+v, %v", good, err)
	}
	var f map[string]any
	if err := json.Unmarshal(good.Fields, &f); err != nil {
		t.Fatalf("fields json: %v", err)
	}
	if f["title"] != "Good" {
		t.Errorf("fields = %v", f)
	}

	bad, err := db.GetContent("bad.md")
	if err != nil || bad.Status != StatusInvalid || bad.Error == "" {
		t.Errorf("bad = %+v, %v", bad, err)
	}

	// Exactly one of the two posts sharing a slug is valid.
	p1, _ := db.GetContent("p1.md")
	p2, _ := db.GetContent("p2.md")
	if (p1.Status == StatusValid) == (p2.Status == StatusValid) {
		t.Errorf("p1 = %s, p2 = %s; want exactly one valid", p1.Status, p2.Status)
	}

	if _, err := db.GetContent("notes.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("non-content file indexed")
	}

	// Removing a file drops it on the next sync.
	_ = store.Delete("good.md")
	if err := Sync(db, store, loader, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cs, _ := db.GetChecksum("good.md"); cs != "" {
		t.Error("stale entry not removed")
	}
}

func TestRebuild_ReResolvesUnchangedFiles(t *testing.T) {
	db := testDB(t)
	store, loader := testLoader(t, nil)
	_ = store.Write("a.md", []byte("---\ntitle: A\n---\n"))
	if err := Sync(db, store, loader, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	// Same checksum, so Sync alone would leave the row untouched.
	cs, _ := db.GetChecksum("a.md")
	_ = db.MarkInvalid("a.md", cs, "forced")
	if err := Sync(db, store, loader, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	row, _ := db.GetContent("a.md")
	if row.Status != StatusInvalid {
		t.Fatalf("precondition: status = %s", row.Status)
	}
	if err := Rebuild(db, store, loader, quietLogger()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	row, _ = db.GetContent("a.md")
	if row.Status != StatusValid {
		t.Errorf("status after rebuild = %s", row.Status)
	}
}
