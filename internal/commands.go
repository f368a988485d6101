package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/synamic/internal/content"
	"github.com/starford/synamic/internal/contentservice"
	"github.com/starford/synamic/internal/index"
	"github.com/starford/synamic/internal/mcpserver"
)

// Check resolves every content file and writes one report line per file.
// Values of unique fields are compared across the whole site. It fails if
// any file is invalid.
func Check(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)

	st, err := openSite(app.config)
	if err != nil {
		return err
	}
	files, err := st.content.List("", content.Ext)
	if err != nil {
		return fmt.Errorf("list content: %w", err)
	}

	type uniqueKey struct{ model, field, value string }
	seen := make(map[uniqueKey]string)
	failed := 0
	for _, f := range files {
		doc, err := st.loader.Load(f.Path)
		if err == nil {
			for _, u := range doc.Unique {
				k := uniqueKey{doc.Model, u.Field, u.Value}
				if other, ok := seen[k]; ok {
					err = fmt.Errorf("%s %q is already used by %s", u.Field, u.Value, other)
					break
				}
				seen[k] = f.Path
			}
		}
		if err != nil {
			failed++
			fmt.Fprintf(app.output, "FAIL %s: %v\n", f.Path, err)
			continue
		}
		fmt.Fprintf(app.output, "ok   %s\n", f.Path)
	}

	logger.Info("check finished", slog.Int("files", len(files)), slog.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d of %d content files are invalid", failed, len(files))
	}
	return nil
}

// Resolve writes the resolved fields of one content file as JSON.
func Resolve(_ context.Context, path string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	st, err := openSite(app.config)
	if err != nil {
		return err
	}
	doc, err := st.loader.Load(path)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(app.output)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"path":         doc.Path,
		"model":        doc.Model,
		"title":        doc.Title,
		"front_matter": doc.Tree,
		"fields":       doc.Fields,
	})
}

// ServeMCP syncs the index and serves the MCP tools on stdin/stdout. Logs
// go to stderr so they do not mix with the protocol stream.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	st, err := openSite(cfg)
	if err != nil {
		return err
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, st.content, st.loader, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := contentservice.NewService(st.content, db, st.loader, st.registry)
	logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(svc, app.version).ServeStdio()
}
