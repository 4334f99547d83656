// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Values come from an optional
// YAML file with environment variables taking precedence.
type Config struct {
	Addr          string `yaml:"addr"`
	DataDir       string `yaml:"data_dir"`
	DatabasePath  string `yaml:"database_path"`
	CacheDir      string `yaml:"cache_dir"`
	ReposDir      string `yaml:"repos_dir"`
	PromptPath    string `yaml:"prompt_path"`
	GitHubToken   string `yaml:"github_token"`
	GitHubBaseURL string `yaml:"github_base_url"`
	OpenAIKey     string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	Model         string `yaml:"model"`
	LogLevel      string `yaml:"log_level"`
}

// Load resolves the configuration: defaults, then the YAML file at
// KNOWTREE_CONFIG (or <data dir>/config.yaml when present), then environment
// variables. The data and cache directories are created.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dataDir := envOrDefault("KNOWTREE_DATA_DIR", filepath.Join(home, ".knowtree"))

	cfg := &Config{
		Addr:     ":8000",
		DataDir:  dataDir,
		LogLevel: "info",
	}

	path := os.Getenv("KNOWTREE_CONFIG")
	if path == "" {
		path = filepath.Join(dataDir, "config.yaml")
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.loadEnv()

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "knowtree.db")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(cfg.DataDir, "diff-cache")
	}

	for _, dir := range []string{cfg.DataDir, cfg.CacheDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadFile merges the YAML file at path into the config. A missing file is
// fine; an unreadable or malformed one is not.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// loadEnv applies environment overrides.
func (c *Config) loadEnv() {
	setIfEnv(&c.Addr, "KNOWTREE_ADDR")
	setIfEnv(&c.DatabasePath, "KNOWTREE_DATABASE_PATH")
	setIfEnv(&c.CacheDir, "KNOWTREE_CACHE_DIR")
	setIfEnv(&c.ReposDir, "KNOWTREE_REPOS_DIR")
	setIfEnv(&c.PromptPath, "KNOWTREE_PROMPT")
	setIfEnv(&c.GitHubToken, "GITHUB_TOKEN")
	setIfEnv(&c.GitHubBaseURL, "KNOWTREE_GITHUB_BASE_URL")
	setIfEnv(&c.OpenAIKey, "OPENAI_API_KEY")
	setIfEnv(&c.OpenAIBaseURL, "KNOWTREE_OPENAI_BASE_URL")
	setIfEnv(&c.Model, "KNOWTREE_MODEL")
	setIfEnv(&c.LogLevel, "KNOWTREE_LOG_LEVEL")
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
