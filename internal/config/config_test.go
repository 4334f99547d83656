// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "knowtree")
	t.Setenv("KNOWTREE_DATA_DIR", dataDir)
	t.Setenv("KNOWTREE_CONFIG", "")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("KNOWTREE_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr != ":8000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DatabasePath != filepath.Join(dataDir, "knowtree.db") {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if _, err := os.Stat(cfg.CacheDir); err != nil {
		t.Errorf("Cache dir not created: %v", err)
	}
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := "addr: \":9000\"\nmodel: gpt-4o-mini\ngithub_token: from-file\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Setenv("KNOWTREE_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("KNOWTREE_CONFIG", configPath)
	t.Setenv("KNOWTREE_ADDR", "")
	t.Setenv("KNOWTREE_MODEL", "")
	t.Setenv("GITHUB_TOKEN", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want file value", cfg.Addr)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.GitHubToken != "from-env" {
		t.Errorf("GitHubToken = %q, env must win over file", cfg.GitHubToken)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(":\n  - not yaml"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	t.Setenv("KNOWTREE_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("KNOWTREE_CONFIG", configPath)

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for malformed config file")
	}
}
