package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/synamic/internal/content"
	"github.com/starford/synamic/internal/storage"
	"github.com/starford/synamic/internal/types"
)

// site holds the components shared by every command.
type site struct {
	content  *storage.FS
	models   *storage.FS
	registry *types.Registry
	modelSet *content.ModelSet
	loader   *content.Loader
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

func openSite(cfg *Config) (*site, error) {
	contentDir, modelDir := cfg.Site.ContentPath(), cfg.Site.ModelPath()
	for _, dir := range []string{contentDir, modelDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create site dir: %w", err)
		}
	}

	cs, err := storage.NewFS(contentDir)
	if err != nil {
		return nil, fmt.Errorf("init content storage: %w", err)
	}
	ms, err := storage.NewFS(modelDir)
	if err != nil {
		return nil, fmt.Errorf("init model storage: %w", err)
	}

	reg := types.Default()
	set := content.NewModelSet(ms, reg)
	return &site{
		content:  cs,
		models:   ms,
		registry: reg,
		modelSet: set,
		loader:   content.NewLoader(cs, set, reg),
	}, nil
}
