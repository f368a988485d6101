package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig(t *testing.T, files map[string]string) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Site.Path = t.TempDir()
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "test.db")
	for rel, data := range files {
		p := filepath.Join(cfg.Site.Path, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func TestCheck_AllValid(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"content/a.md":     "---\ntitle: A\n---\nbody",
		"content/sub/b.md": "# B",
	})
	var out bytes.Buffer
	if err := Check(context.Background(), WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("Check: %v\n%s", err, out.String())
	}
	if strings.Count(out.String(), "ok ") != 2 {
		t.Errorf("report = %q", out.String())
	}
}

func TestCheck_ReportsFailures(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"models/post.model": "slug: string | unique",
		"content/a.md":      "---\nmodel: post\nslug: x\n---\n",
		"content/b.md":      "---\nmodel: post\nslug: x\n---\n",
		"content/c.md":      "---\nbroken {\n---\n",
	})
	var out bytes.Buffer
	err := Check(context.Background(), WithConfig(cfg), WithOutput(&out))
	if err == nil || !strings.Contains(err.Error(), "2 of 3") {
		t.Fatalf("err = %v", err)
	}
	report := out.String()
	if !strings.Contains(report, "ok   a.md") || !strings.Contains(report, "FAIL b.md") || !strings.Contains(report, "FAIL c.md") {
		t.Errorf("report = %q", report)
	}
}

func TestResolve_WritesJSON(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"content/r.md": "---\ntitle: R\nrating: 5\n---\nHello",
	})
	var out bytes.Buffer
	if err := Resolve(context.Background(), "r.md", WithConfig(cfg), WithOutput(&out)); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	var got struct {
		Model  string         `json:"model"`
		Title  string         `json:"title"`
		Fields map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.Model != "content" || got.Title != "R" || got.Fields["rating"] != "5" {
		t.Errorf("got = %+v", got)
	}
}

func TestRun_RequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Error("expected error without config")
	}
}
