package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/synamic/internal/apperr"
	"github.com/starford/synamic/internal/checksum"
	"github.com/starford/synamic/internal/content"
	"github.com/starford/synamic/internal/storage"
)

// Sync walks the content store and brings the index up to date:
//   - new/changed files are resolved and upserted (or recorded as invalid)
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, loader *content.Loader, logger *slog.Logger) error {
	return syncStore(db, store, loader, logger, false)
}

// Rebuild is Sync without the checksum shortcut: every file is resolved
// again. Used after model definitions change.
func Rebuild(db *DB, store storage.Provider, loader *content.Loader, logger *slog.Logger) error {
	return syncStore(db, store, loader, logger, true)
}

func syncStore(db *DB, store storage.Provider, loader *content.Loader, logger *slog.Logger, force bool) error {
	metas, err := store.List("", content.Ext)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if !force && checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, err := IndexFile(db, loader, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteContent(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile resolves data and upserts it. A file that fails to resolve or
// collides on a unique field is recorded as invalid and the cause is
// returned.
func IndexFile(db *DB, loader *content.Loader, path string, data []byte) (*content.Document, error) {
	doc, err := loader.Parse(path, data)
	if err == nil {
		err = upsertDocument(db, doc)
		if err == nil {
			return doc, nil
		}
	}
	if errors.Is(err, apperr.ErrInvalid) || errors.Is(err, apperr.ErrConflict) {
		if mErr := db.MarkInvalid(path, checksum.Sum(data), err.Error()); mErr != nil {
			return nil, mErr
		}
	}
	return nil, err
}

func upsertDocument(db *DB, doc *content.Document) error {
	fieldsJSON, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("index: encode fields of %s: %w", doc.Path, err)
	}
	marks := make([]MarkRow, len(doc.Marks))
	for i, m := range doc.Marks {
		marks[i] = MarkRow{Field: m.Field, Key: m.Key, Title: m.Title}
	}
	unique := make([]UniqueRow, len(doc.Unique))
	for i, u := range doc.Unique {
		unique[i] = UniqueRow{Field: u.Field, Value: u.Value}
	}
	return db.UpsertContent(ContentRow{
		Path:     doc.Path,
		Model:    doc.Model,
		Title:    doc.Title,
		Checksum: doc.Checksum,
		Fields:   fieldsJSON,
	}, doc.BodyText(), marks, unique)
}
