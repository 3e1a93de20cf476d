package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/search"
	"github.com/starford/ansuz/internal/store"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Engine EngineConfig      `yaml:"engine"`
	Ingest IngestConfig      `yaml:"ingest"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Engine.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EngineConfig tunes search, caching, versioning, and the background
// worker. Durations are plain seconds so they read naturally in YAML.
type EngineConfig struct {
	SearchWeights        search.Weights `yaml:"search_weights"`
	IndexTTLSeconds      int            `yaml:"index_ttl_seconds"`
	CacheTTLSeconds      int            `yaml:"cache_ttl_seconds"`
	VersionMinGapSeconds int            `yaml:"version_min_gap_seconds"`
	MaxVersions          int            `yaml:"max_versions"`
	WorkerQueue          int            `yaml:"worker_queue"`
	GraphThrottleSeconds int            `yaml:"graph_throttle_seconds"`
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	if c.SearchWeights.Title < 0 || c.SearchWeights.Tag < 0 || c.SearchWeights.Body < 0 {
		return fmt.Errorf("engine: search weights must be non-negative")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.IndexTTLSeconds, validation.Min(0)),
		validation.Field(&c.CacheTTLSeconds, validation.Min(0)),
		validation.Field(&c.VersionMinGapSeconds, validation.Min(0)),
		validation.Field(&c.MaxVersions, validation.Required, validation.Min(1)),
		validation.Field(&c.WorkerQueue, validation.Min(0)),
		validation.Field(&c.GraphThrottleSeconds, validation.Min(0)),
	)
}

// IndexTTL returns the search index cache lifetime.
func (c *EngineConfig) IndexTTL() time.Duration {
	return time.Duration(c.IndexTTLSeconds) * time.Second
}

// CacheTTL returns the derived-data cache lifetime.
func (c *EngineConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// VersionMinGap returns the versioning throttle interval.
func (c *EngineConfig) VersionMinGap() time.Duration {
	return time.Duration(c.VersionMinGapSeconds) * time.Second
}

// GraphThrottle returns the minimum spacing of graph.updated events.
func (c *EngineConfig) GraphThrottle() time.Duration {
	return time.Duration(c.GraphThrottleSeconds) * time.Second
}

// IngestConfig controls the Markdown import pipeline. An empty Dir
// disables ingestion entirely.
type IngestConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// NewDefaultConfig returns a Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./ansuz.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Engine: EngineConfig{
			SearchWeights:        search.DefaultWeights(),
			IndexTTLSeconds:      int(search.DefaultIndexTTL / time.Second),
			CacheTTLSeconds:      30,
			VersionMinGapSeconds: int(store.DefaultVersionMinGap / time.Second),
			MaxVersions:          store.DefaultMaxVersions,
			WorkerQueue:          16,
			GraphThrottleSeconds: 2,
		},
	}
}
