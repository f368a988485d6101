package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/synamic/internal/apperr"
)

// Content statuses.
const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"
)

// ContentRow represents a row in the contents table.
type ContentRow struct {
	Path      string          `json:"path"`
	Model     string          `json:"model"`
	Title     string          `json:"title"`
	Checksum  string          `json:"checksum"`
	Fields    json.RawMessage `json:"fields,omitempty"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MarkRow is one mark reference of a document.
type MarkRow struct {
	Field string
	Key   string
	Title string
}

// UniqueRow is one value of a field declared unique by the model.
type UniqueRow struct {
	Field string
	Value string
}

// MarkHit is a document carrying a given mark.
type MarkHit struct {
	Path      string `json:"path"`
	Title     string `json:"title"`
	Field     string `json:"field"`
	MarkTitle string `json:"mark_title"`
}

// MarkCount is a mark key with the number of documents using it.
type MarkCount struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// UpsertContent inserts or replaces a valid document with its marks, unique
// values and FTS entry within a transaction. A unique value already held by
// another path of the same model fails with apperr.ErrConflict and leaves
// the index unchanged.
func (db *DB) UpsertContent(c ContentRow, body string, marks []MarkRow, unique []UniqueRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, u := range unique {
		var other string
		err := tx.QueryRow(`
			SELECT path FROM unique_values
			WHERE model = ? AND field = ? AND value = ? AND path <> ?
		`, c.Model, u.Field, u.Value, c.Path).Scan(&other)
		switch {
		case err == nil:
			return fmt.Errorf("index: %s: %s %q is already used by %s: %w", c.Path, u.Field, u.Value, other, apperr.ErrConflict)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("index: check unique: %w", err)
		}
	}

	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	fieldsJSON := string(c.Fields)
	if fieldsJSON == "" {
		fieldsJSON = "{}"
	}

	_, err = tx.Exec(`
		INSERT INTO contents (path, model, title, checksum, fields, body, status, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'valid', '', ?)
		ON CONFLICT(path) DO UPDATE SET
			model      = excluded.model,
			title      = excluded.title,
			checksum   = excluded.checksum,
			fields     = excluded.fields,
			body       = excluded.body,
			status     = excluded.status,
			error      = excluded.error,
			updated_at = excluded.updated_at
	`, c.Path, c.Model, c.Title, c.Checksum, fieldsJSON, body, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert content: %w", err)
	}

	markTitles := make([]string, 0, len(marks))
	for _, m := range marks {
		markTitles = append(markTitles, m.Title)
	}
	if err := ftsUpsert(tx, c.Path, c.Title, body, markTitles); err != nil {
		return err
	}

	// Replace marks and unique values: delete old then bulk insert.
	if err := clearDerived(tx, c.Path); err != nil {
		return err
	}
	if len(marks) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO marks (path, field, key, title) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare mark insert: %w", err)
		}
		defer stmt.Close()
		for _, m := range marks {
			if _, err := stmt.Exec(c.Path, m.Field, m.Key, m.Title); err != nil {
				return fmt.Errorf("index: insert mark: %w", err)
			}
		}
	}
	for _, u := range unique {
		if _, err := tx.Exec(`INSERT INTO unique_values (model, field, value, path) VALUES (?, ?, ?, ?)`,
			c.Model, u.Field, u.Value, c.Path); err != nil {
			return fmt.Errorf("index: insert unique value: %w", err)
		}
	}

	return tx.Commit()
}

// MarkInvalid records that the file at path with the given checksum could
// not be resolved. Derived rows of a previous valid version are dropped.
func (db *DB) MarkInvalid(path, checksum, reason string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO contents (path, checksum, status, error, updated_at)
		VALUES (?, ?, 'invalid', ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			model      = '',
			title      = '',
			fields     = '{}',
			body       = '',
			checksum   = excluded.checksum,
			status     = excluded.status,
			error      = excluded.error,
			updated_at = excluded.updated_at
	`, path, checksum, reason, time.Now())
	if err != nil {
		return fmt.Errorf("index: mark invalid: %w", err)
	}
	ftsDelete(tx, path)
	if err := clearDerived(tx, path); err != nil {
		return err
	}
	return tx.Commit()
}

func clearDerived(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM marks WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: clear marks: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM unique_values WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: clear unique values: %w", err)
	}
	return nil
}

// DeleteContent removes a document and everything derived from it.
func (db *DB) DeleteContent(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if err := clearDerived(tx, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM contents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete content: %w", err)
	}
	return tx.Commit()
}

const contentColumns = `path, model, title, checksum, fields, status, error, updated_at`

func scanContent(sc interface{ Scan(...any) error }) (ContentRow, error) {
	var (
		c      ContentRow
		fields string
	)
	if err := sc.Scan(&c.Path, &c.Model, &c.Title, &c.Checksum, &fields, &c.Status, &c.Error, &c.UpdatedAt); err != nil {
		return ContentRow{}, err
	}
	c.Fields = json.RawMessage(fields)
	return c, nil
}

// GetContent returns the row for path or apperr.ErrNotFound.
func (db *DB) GetContent(path string) (*ContentRow, error) {
	row := db.conn.QueryRow(`SELECT `+contentColumns+` FROM contents WHERE path = ?`, path)
	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get content: %w", err)
	}
	return &c, nil
}

// GetChecksum returns the stored checksum for a document, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM contents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil // not found is fine
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every indexed file, valid or not.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM contents`)
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

// ListContents returns a page of documents and the total count. mark
// filters by mark key; sort is one of updated_at (default, newest first),
// title or path.
func (db *DB) ListContents(limit, offset int, mark, sort string) ([]ContentRow, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	order := "updated_at DESC, path"
	switch sort {
	case "title":
		order = "title COLLATE NOCASE, path"
	case "path":
		order = "path"
	}

	where := "1 = 1"
	args := []any{}
	if mark != "" {
		where = "EXISTS (SELECT 1 FROM marks m WHERE m.path = contents.path AND m.key = ?)"
		args = append(args, mark)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM contents WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count contents: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+contentColumns+` FROM contents WHERE `+where+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list contents: %w", err)
	}
	defer rows.Close()

	out := []ContentRow{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// ContentsByMark returns the documents carrying mark key, by path.
func (db *DB) ContentsByMark(key string) ([]MarkHit, error) {
	rows, err := db.conn.Query(`
		SELECT m.path, c.title, m.field, m.title
		FROM marks m JOIN contents c ON c.path = m.path
		WHERE m.key = ?
		ORDER BY m.path, m.field
	`, key)
	if err != nil {
		return nil, fmt.Errorf("index: contents by mark: %w", err)
	}
	defer rows.Close()

	out := []MarkHit{}
	for rows.Next() {
		var h MarkHit
		if err := rows.Scan(&h.Path, &h.Title, &h.Field, &h.MarkTitle); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Marks returns every mark key with its document count, most used first.
func (db *DB) Marks() ([]MarkCount, error) {
	rows, err := db.conn.Query(`
		SELECT key, min(title), count(DISTINCT path) AS n
		FROM marks
		GROUP BY key
		ORDER BY n DESC, key
	`)
	if err != nil {
		return nil, fmt.Errorf("index: marks: %w", err)
	}
	defer rows.Close()

	out := []MarkCount{}
	for rows.Next() {
		var m MarkCount
		if err := rows.Scan(&m.Key, &m.Title, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
