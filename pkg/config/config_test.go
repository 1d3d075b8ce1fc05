package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Name != "deskpilot" {
		t.Fatalf("name = %q", cfg.App.Name)
	}
	if cfg.Planner.Retries != 3 || cfg.Planner.TimeoutSeconds != 15 {
		t.Fatalf("planner defaults = %+v", cfg.Planner)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  name: pilot-test
  workspace: /tmp/ws
planner:
  model: local-llm
  base_url: http://localhost:8080/v1
  retries: 5
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.Name != "pilot-test" || cfg.App.Workspace != "/tmp/ws" {
		t.Fatalf("app = %+v", cfg.App)
	}
	if cfg.Planner.Model != "local-llm" || cfg.Planner.Retries != 5 {
		t.Fatalf("planner = %+v", cfg.Planner)
	}
	// untouched field keeps its default
	if cfg.Planner.TimeoutSeconds != 15 {
		t.Fatalf("timeout = %d, want default 15", cfg.Planner.TimeoutSeconds)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("app: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
