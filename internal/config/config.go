// Package config loads site.yaml and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration.
const DefaultPath = "site.yaml"

// Config is the complete site configuration.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Data      DataConfig      `yaml:"data"`
	Directory DirectoryConfig `yaml:"directory"`
	Spotlight SpotlightConfig `yaml:"spotlight"`
	Weather   WeatherConfig   `yaml:"weather"`
	Prefs     PrefsConfig     `yaml:"prefs"`
	Server    ServerConfig    `yaml:"server"`
	Notify    NotifyConfig    `yaml:"notify"`
	Deploy    DeployConfig    `yaml:"deploy"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig locates the site sources and the build output.
type SiteConfig struct {
	Title        string `yaml:"title"`
	SourceDir    string `yaml:"source_dir"`
	OutputDir    string `yaml:"output_dir"`
	TemplatesDir string `yaml:"templates_dir"`
	LevelsDir    string `yaml:"levels_dir"`
	Logo         string `yaml:"logo"`
	Stylesheet   string `yaml:"stylesheet"`
}

// DataConfig selects where data/members.json and data/places.json come from.
// An empty BaseURL reads them from the source directory.
type DataConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type DirectoryConfig struct {
	DefaultView string `yaml:"default_view"` // grid, list
}

type SpotlightConfig struct {
	Count int `yaml:"count"`
}

// WeatherConfig points the home page widget at OpenWeatherMap. Without an
// API key the widget shows its error state.
type WeatherConfig struct {
	APIKey    string `yaml:"api_key"`
	Latitude  string `yaml:"latitude"`
	Longitude string `yaml:"longitude"`
	BaseURL   string `yaml:"base_url"`
}

type PrefsConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	CSRFKey       string `yaml:"csrf_key"`
	SecureCookies bool   `yaml:"secure_cookies"`
}

type NotifyConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	From         string `yaml:"from"`
	OfficeEmail  string `yaml:"office_email"`
}

type DeployConfig struct {
	Bucket     string `yaml:"bucket"`
	CloudFront bool   `yaml:"cloudfront"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Title:        "Juan José Mora Chamber of Commerce",
			SourceDir:    ".",
			OutputDir:    "public",
			TemplatesDir: "templates",
			LevelsDir:    "content/levels",
			Logo:         "assets/images/logo.png",
			Stylesheet:   "static/css/style.css",
		},
		Directory: DirectoryConfig{DefaultView: "grid"},
		Spotlight: SpotlightConfig{Count: 3},
		Weather: WeatherConfig{
			Latitude:  "10.4897",
			Longitude: "-68.2007",
		},
		Prefs:  PrefsConfig{Path: "prefs.db"},
		Server: ServerConfig{Addr: ":8080"},
		Notify: NotifyConfig{
			From:        "Chamber Website <noreply@camarajjmora.org>",
			OfficeEmail: "info@camarajjmora.org",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("CHAMBER_OWM_KEY"); key != "" {
		c.Weather.APIKey = key
	}
	if u := os.Getenv("CHAMBER_DATA_URL"); u != "" {
		c.Data.BaseURL = u
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + strings.TrimPrefix(port, ":")
	}
	if key := os.Getenv("CHAMBER_CSRF_KEY"); key != "" {
		c.Server.CSRFKey = key
	}
	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		c.Notify.ResendAPIKey = key
	}
	if bucket := os.Getenv("CHAMBER_BUCKET"); bucket != "" {
		c.Deploy.Bucket = bucket
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Site.OutputDir == "" {
		return errors.New("site.output_dir is required")
	}
	if c.Site.TemplatesDir == "" {
		return errors.New("site.templates_dir is required")
	}
	switch c.Directory.DefaultView {
	case "grid", "list":
	default:
		return fmt.Errorf("directory.default_view must be grid or list, got %q", c.Directory.DefaultView)
	}
	if c.Spotlight.Count < 0 {
		return fmt.Errorf("spotlight.count must not be negative, got %d", c.Spotlight.Count)
	}
	if c.Data.Timeout != "" {
		if _, err := time.ParseDuration(c.Data.Timeout); err != nil {
			return fmt.Errorf("data.timeout: %w", err)
		}
	}
	if c.Server.CSRFKey != "" && len(c.Server.CSRFKey) != 32 {
		return fmt.Errorf("server.csrf_key must be 32 bytes, got %d", len(c.Server.CSRFKey))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

// DataTimeout is the fetch timeout for data documents. Zero means none.
func (c *Config) DataTimeout() time.Duration {
	d, err := time.ParseDuration(c.Data.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// SourcePath joins p onto the source directory.
func (c *Config) SourcePath(p string) string {
	return filepath.Join(c.Site.SourceDir, p)
}
