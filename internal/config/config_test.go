package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	hiremindDir := filepath.Join(projectDir, ".hiremind")
	if err := os.MkdirAll(hiremindDir, 0755); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, HiremindProjectDir: hiremindDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Fatalf("expected default base url %q, got %q", DefaultBaseURL, c.BaseURL())
	}
	if c.PollInterval() != 2*time.Second {
		t.Fatalf("expected 2s poll interval, got %s", c.PollInterval())
	}
	if c.MaxPollAttempts() != 90 {
		t.Fatalf("expected 90 poll attempts, got %d", c.MaxPollAttempts())
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	hiremindDir := filepath.Join(projectDir, ".hiremind")
	if err := os.MkdirAll(hiremindDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
api:
  base_url: https://hire.example.com/
polling:
  interval: 500ms
  max_attempts: 10
ui:
  theme: DARK
  sidebar_open: false
`)
	if err := os.WriteFile(filepath.Join(hiremindDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, HiremindProjectDir: hiremindDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.BaseURL() != "https://hire.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", c.BaseURL())
	}
	if c.PollInterval() != 500*time.Millisecond {
		t.Fatalf("wrong poll interval: %s", c.PollInterval())
	}
	if c.MaxPollAttempts() != 10 {
		t.Fatalf("wrong max attempts: %d", c.MaxPollAttempts())
	}
	if c.Theme() != ThemeDark {
		t.Fatalf("expected theme to be normalized, got %s", c.Theme())
	}
	if c.SidebarOpen() {
		t.Fatalf("expected sidebar to start closed")
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	projectDir := t.TempDir()
	hiremindDir := filepath.Join(projectDir, ".hiremind")
	if err := os.MkdirAll(hiremindDir, 0755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
api:
  base_url: localhost
`)
	if err := os.WriteFile(filepath.Join(hiremindDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	c := &Config{ProjectDir: projectDir, HiremindProjectDir: hiremindDir, Project: defaultProjectConfig()}
	if err := c.loadProjectConfig(); err == nil {
		t.Fatalf("expected validation error but got none")
	}
}

func TestNewConfigHonorsEnvAndDotenv(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitHiremindDir(projectDir); err != nil {
		t.Fatalf("init hiremind dir: %v", err)
	}
	t.Setenv("HIREMIND_API_URL", "")
	t.Setenv("HIREMIND_POLL_INTERVAL", "250ms")
	dotenv := "HIREMIND_API_URL=http://api.internal:9000\n"
	if err := os.WriteFile(filepath.Join(projectDir, ".env"), []byte(dotenv), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set, even when empty.
	if err := os.Unsetenv("HIREMIND_API_URL"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("HIREMIND_API_URL") })
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.BaseURL() != "http://api.internal:9000" {
		t.Fatalf("expected .env base url, got %s", cfg.BaseURL())
	}
	if cfg.PollInterval() != 250*time.Millisecond {
		t.Fatalf("expected env poll interval, got %s", cfg.PollInterval())
	}
}

func TestSetThemePersists(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitHiremindDir(projectDir); err != nil {
		t.Fatalf("init hiremind dir: %v", err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if err := cfg.SetTheme("dark"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if reloaded.Theme() != ThemeDark {
		t.Fatalf("expected persisted dark theme, got %s", reloaded.Theme())
	}
	if err := cfg.SetTheme("neon"); err == nil {
		t.Fatalf("expected unknown theme to fail")
	}
}
