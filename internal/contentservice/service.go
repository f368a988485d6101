// Package contentservice coordinates content storage, the loader and the
// index for the API and MCP layers.
package contentservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/starford/synamic/internal/apperr"
	"github.com/starford/synamic/internal/checksum"
	"github.com/starford/synamic/internal/content"
	"github.com/starford/synamic/internal/fields"
	"github.com/starford/synamic/internal/index"
	"github.com/starford/synamic/internal/model"
	"github.com/starford/synamic/internal/storage"
	"github.com/starford/synamic/internal/syd"
	"github.com/starford/synamic/internal/types"
)

// ContentDetail is the full representation of a content file.
type ContentDetail struct {
	Path        string           `json:"path"`
	Model       string           `json:"model,omitempty"`
	Title       string           `json:"title"`
	Source      string           `json:"source"`
	Checksum    string           `json:"checksum"`
	Status      string           `json:"status"`
	Error       string           `json:"error,omitempty"`
	FrontMatter *syd.Container   `json:"front_matter,omitempty"`
	Fields      *fields.Resolved `json:"fields,omitempty"`
	Marks       []MarkItem       `json:"marks"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// MarkItem is a mark referenced by a field of a document.
type MarkItem struct {
	Field string `json:"field"`
	Key   string `json:"key"`
	Title string `json:"title"`
}

// ContentListItem is a lightweight item in a list response.
type ContentListItem struct {
	Path      string    `json:"path"`
	Model     string    `json:"model"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FieldInfo describes one field of a parsed model.
type FieldInfo struct {
	Key      string `json:"key"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Unique   bool   `json:"unique"`
}

// Service coordinates storage, loader and index operations.
type Service struct {
	store  storage.Provider
	db     *index.DB
	loader *content.Loader
	reg    *types.Registry
}

// NewService creates a new content service.
func NewService(store storage.Provider, db *index.DB, loader *content.Loader, reg *types.Registry) *Service {
	return &Service{store: store, db: db, loader: loader, reg: reg}
}

// GetContent reads a content file and resolves it. A file that does not
// resolve is still returned, with status invalid and the error text.
func (s *Service) GetContent(_ context.Context, path string) (*ContentDetail, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.buildDetail(path, data)
}

// CreateContent validates and writes a new content file, then indexes it.
func (s *Service) CreateContent(_ context.Context, path string, src []byte) (*ContentDetail, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if _, err := s.loader.Parse(path, src); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, src); err != nil {
		return nil, err
	}
	if _, err := index.IndexFile(s.db, s.loader, path, src); err != nil {
		return nil, err
	}
	return s.buildDetail(path, src)
}

// UpdateContent writes updated source with optimistic concurrency. ifMatch,
// when set, must equal the checksum of the file on disk.
func (s *Service) UpdateContent(_ context.Context, path string, src []byte, ifMatch string) (*ContentDetail, error) {
	existing, err := s.read(path)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, fmt.Errorf("contentservice: %s: checksum mismatch: %w", path, apperr.ErrConflict)
	}
	if _, err := s.loader.Parse(path, src); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, src); err != nil {
		return nil, err
	}
	if _, err := index.IndexFile(s.db, s.loader, path, src); err != nil {
		return nil, err
	}
	return s.buildDetail(path, src)
}

// DeleteContent removes a content file from storage and index.
func (s *Service) DeleteContent(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	return s.db.DeleteContent(path)
}

// ListContents returns paginated index rows with an optional mark filter.
func (s *Service) ListContents(_ context.Context, limit, offset int, mark, sort string) ([]ContentListItem, int, error) {
	rows, total, err := s.db.ListContents(limit, offset, mark, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ContentListItem, len(rows))
	for i, r := range rows {
		items[i] = ContentListItem{
			Path:      r.Path,
			Model:     r.Model,
			Title:     r.Title,
			Checksum:  r.Checksum,
			Status:    r.Status,
			Error:     r.Error,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// ContentsByMark returns the documents carrying the mark key.
func (s *Service) ContentsByMark(_ context.Context, key string) ([]index.MarkHit, error) {
	return s.db.ContentsByMark(types.MarkKey(key))
}

// Marks returns every mark with its usage count.
func (s *Service) Marks(_ context.Context) ([]index.MarkCount, error) {
	return s.db.Marks()
}

// Resolve loads and resolves the content file at path.
func (s *Service) Resolve(_ context.Context, path string) (*content.Document, error) {
	data, err := s.read(path)
	if err != nil {
		return nil, err
	}
	return s.loader.Parse(path, data)
}

// ParseSyd parses Syd text. Syntax errors are *syd.ParseError.
func (s *Service) ParseSyd(_ context.Context, text string) (*syd.Container, error) {
	return syd.Parse(text)
}

// ParseModel parses a model definition and checks that every field type is
// registered.
func (s *Service) ParseModel(_ context.Context, name, text string) ([]FieldInfo, error) {
	if name == "" {
		name = model.DefaultName
	}
	m, err := model.Parse(name, text)
	if err != nil {
		return nil, err
	}
	if err := m.Bind(s.reg); err != nil {
		return nil, err
	}
	out := make([]FieldInfo, 0, m.Len())
	for _, f := range m.Fields() {
		out = append(out, FieldInfo{Key: f.Key, Type: f.Type, Required: f.Required, Unique: f.Unique})
	}
	return out, nil
}

// Types returns the names of all registered field types.
func (s *Service) Types() []string {
	return s.reg.Names()
}

func (s *Service) read(path string) ([]byte, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// buildDetail constructs a ContentDetail from raw data without re-reading the file.
func (s *Service) buildDetail(path string, data []byte) (*ContentDetail, error) {
	d := &ContentDetail{
		Path:      path,
		Source:    string(data),
		Checksum:  checksum.Sum(data),
		Status:    index.StatusValid,
		Marks:     []MarkItem{},
		UpdatedAt: time.Now(),
	}
	if row, err := s.db.GetContent(path); err == nil {
		d.UpdatedAt = row.UpdatedAt
		if row.Checksum == d.Checksum && row.Status == index.StatusInvalid {
			// Parses alone but was rejected by the index, e.g. a unique clash.
			d.Status, d.Error = row.Status, row.Error
		}
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	doc, err := s.loader.Parse(path, data)
	if err != nil {
		if !errors.Is(err, apperr.ErrInvalid) {
			return nil, err
		}
		d.Status, d.Error = index.StatusInvalid, err.Error()
		return d, nil
	}
	d.Model = doc.Model
	d.Title = doc.Title
	d.FrontMatter = doc.Tree
	d.Fields = doc.Fields
	for _, m := range doc.Marks {
		d.Marks = append(d.Marks, MarkItem{Field: m.Field, Key: m.Key, Title: m.Title})
	}
	return d, nil
}

func checkPath(path string) error {
	if !strings.HasSuffix(path, content.Ext) {
		return fmt.Errorf("contentservice: %s: path must end in %s: %w", path, content.Ext, apperr.ErrInvalid)
	}
	return nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
