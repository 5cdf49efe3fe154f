package internal

import (
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/soltvedt/raido/internal/capsa"
)

// Config represents the application configuration for the long-running
// server mode. One-shot CLI commands only use the environment.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Home  HomeConfig        `yaml:"home"`
	Capsa CapsaConfig       `yaml:"capsa"`
	Index IndexConfig       `yaml:"index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Home.Validate(); err != nil {
		return err
	}
	return c.Index.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return nil
}

// HomeConfig holds the raido home directory, the base under which all
// capsas live.
type HomeConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the home configuration.
func (c *HomeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// CapsaConfig selects which capsa the server operates on. An empty name
// means the default capsa for the current agent identity.
type CapsaConfig struct {
	Name string `yaml:"name"`
}

// IndexConfig holds the SQLite content index configuration. Disabled turns
// the index off entirely; search and backlink queries then report an error.
type IndexConfig struct {
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if c.Disabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// DefaultHome returns the raido home directory: the environment override
// when set, otherwise ~/.raido.
func DefaultHome() string {
	if h := os.Getenv(capsa.EnvHome); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".raido"
	}
	return filepath.Join(home, ".raido")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	home := DefaultHome()
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Home: HomeConfig{
			Path: home,
		},
		Index: IndexConfig{
			Path: filepath.Join(home, "raido.db"),
		},
	}
}
