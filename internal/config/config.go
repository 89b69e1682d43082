// internal/config/config.go
//
// This package handles configuration and the .hiremind directory structure.
// The client keeps its config, logs and the persisted session token under
// .hiremind/ in the directory it was launched from.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// HiremindDir is the name of the directory we create in the working directory
	HiremindDir = ".hiremind"

	// DefaultBaseURL matches the development server of the hiring API.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultPollInterval is the fixed period between workflow status requests.
	DefaultPollInterval = 2 * time.Second
	// DefaultMaxPollAttempts caps polling at roughly three minutes.
	DefaultMaxPollAttempts = 90
	// DefaultServiceName identifies this client in exported traces.
	DefaultServiceName = "hiremind-client"
	// DefaultTelemetryEndpoint is the local OTLP/gRPC collector.
	DefaultTelemetryEndpoint = "localhost:4317"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

const defaultProjectConfigYAML = `# hiremind client configuration
version: 1

api:
  # Base URL of the hiring API. HIREMIND_API_URL overrides this value.
  base_url: http://localhost:8000

polling:
  # Workflow status is requested on this period until it completes or fails.
  interval: 2s
  max_attempts: 90

ui:
  theme: light
  sidebar_open: true

telemetry:
  enabled: false
  # endpoint: localhost:4317
  # service_name: hiremind-client
`

// APIConfig points the client at the remote hiring service.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

// PollingConfig controls the workflow status poller.
type PollingConfig struct {
	Interval    string `yaml:"interval"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// UIConfig captures presentation preferences that survive restarts.
type UIConfig struct {
	Theme       string `yaml:"theme"`
	SidebarOpen *bool  `yaml:"sidebar_open,omitempty"`
}

// TelemetryConfig enables OTLP trace export for API calls.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	ServiceName string `yaml:"service_name,omitempty"`
}

// ProjectConfig models .hiremind/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	API       APIConfig       `yaml:"api"`
	Polling   PollingConfig   `yaml:"polling"`
	UI        UIConfig        `yaml:"ui"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Config holds the runtime configuration for the client.
type Config struct {
	// ProjectDir is the directory the client was launched from
	ProjectDir string

	// HiremindProjectDir is ProjectDir/.hiremind
	HiremindProjectDir string

	Project ProjectConfig
}

// InitHiremindDir creates the .hiremind directory structure in the given directory.
//
// Structure created:
// .hiremind/
// ├── config.yaml
// ├── logs/     <- journey.log and http.log
// └── state/    <- persisted session token
func InitHiremindDir(projectDir string) error {
	root := filepath.Join(projectDir, HiremindDir)
	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig loads .env and .hiremind/config.yaml, then applies environment overrides.
func NewConfig(projectDir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(projectDir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := &Config{
		ProjectDir:         projectDir,
		HiremindProjectDir: filepath.Join(projectDir, HiremindDir),
		Project:            defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.Project.applyEnvOverrides()
	cfg.Project.normalize()
	if err := cfg.Project.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.HiremindProjectDir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.HiremindProjectDir, "state")
}

// TokenPath returns the file that stores the session token.
func (c *Config) TokenPath() string {
	return filepath.Join(c.StateDir(), "hiremind_token")
}

// ProjectConfigPath returns the on-disk location for the config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.HiremindProjectDir, "config.yaml")
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Config) BaseURL() string {
	return c.Project.API.BaseURL
}

// PollInterval returns the parsed polling period.
func (c *Config) PollInterval() time.Duration {
	d, err := time.ParseDuration(c.Project.Polling.Interval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// MaxPollAttempts returns the polling attempt ceiling.
func (c *Config) MaxPollAttempts() int {
	return c.Project.Polling.MaxAttempts
}

// Theme returns the configured UI theme.
func (c *Config) Theme() string {
	return c.Project.UI.Theme
}

// SidebarOpen reports whether the navigation sidebar starts expanded.
func (c *Config) SidebarOpen() bool {
	if c.Project.UI.SidebarOpen == nil {
		return true
	}
	return *c.Project.UI.SidebarOpen
}

// SetTheme updates the theme and persists it back to .hiremind/config.yaml.
func (c *Config) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("config: unknown theme %q", theme)
	}
	c.Project.UI.Theme = theme
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.API.BaseURL) == "" {
		pc.API.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(pc.Polling.Interval) == "" {
		pc.Polling.Interval = DefaultPollInterval.String()
	}
	if pc.Polling.MaxAttempts == 0 {
		pc.Polling.MaxAttempts = DefaultMaxPollAttempts
	}
	if strings.TrimSpace(pc.UI.Theme) == "" {
		pc.UI.Theme = ThemeLight
	}
	if strings.TrimSpace(pc.Telemetry.Endpoint) == "" {
		pc.Telemetry.Endpoint = DefaultTelemetryEndpoint
	}
	if strings.TrimSpace(pc.Telemetry.ServiceName) == "" {
		pc.Telemetry.ServiceName = DefaultServiceName
	}
}

func (pc *ProjectConfig) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv("HIREMIND_API_URL")); value != "" {
		pc.API.BaseURL = value
	}
	if value := strings.TrimSpace(os.Getenv("HIREMIND_POLL_INTERVAL")); value != "" {
		if _, err := time.ParseDuration(value); err == nil {
			pc.Polling.Interval = value
		}
	}
	if value := strings.TrimSpace(os.Getenv("HIREMIND_POLL_MAX_ATTEMPTS")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			pc.Polling.MaxAttempts = parsed
		}
	}
	if value := strings.TrimSpace(os.Getenv("HIREMIND_TELEMETRY_ENABLED")); value != "" {
		if enabled, err := strconv.ParseBool(value); err == nil {
			pc.Telemetry.Enabled = enabled
		}
	}
	if value := strings.TrimSpace(os.Getenv("HIREMIND_TELEMETRY_ENDPOINT")); value != "" {
		pc.Telemetry.Endpoint = value
	}
}

func (pc *ProjectConfig) normalize() {
	pc.API.BaseURL = strings.TrimRight(strings.TrimSpace(pc.API.BaseURL), "/")
	pc.Polling.Interval = strings.TrimSpace(pc.Polling.Interval)
	pc.UI.Theme = strings.ToLower(strings.TrimSpace(pc.UI.Theme))
	pc.Telemetry.Endpoint = strings.TrimSpace(pc.Telemetry.Endpoint)
	pc.Telemetry.ServiceName = strings.TrimSpace(pc.Telemetry.ServiceName)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	parsed, err := url.Parse(pc.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https")
	}
	interval, err := time.ParseDuration(pc.Polling.Interval)
	if err != nil {
		return fmt.Errorf("polling.interval: %w", err)
	}
	if interval <= 0 {
		return fmt.Errorf("polling.interval must be positive")
	}
	if pc.Polling.MaxAttempts < 1 {
		return fmt.Errorf("polling.max_attempts must be >= 1")
	}
	switch pc.UI.Theme {
	case ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("ui.theme must be 'light' or 'dark'")
	}
	if pc.Telemetry.Enabled && pc.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.HiremindProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure hiremind dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
