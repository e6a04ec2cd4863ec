// Package config loads and validates vellum.json, the project
// configuration consumed by both the batch builder and the dev server.
// The loaded Config is passed explicitly into every operation; nothing
// in the engine reads ambient global state, so concurrent passes over
// different projects are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vellum-web/vellum/pkg/outpath"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "vellum.json"

	// DefaultPort is the default development server port.
	DefaultPort = 8080

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default build output directory.
	DefaultOutput = "dist"
)

// Config is the complete vellum.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Paths contains the project directory layout.
	Paths PathsConfig `json:"paths,omitempty"`

	// URLs selects the output path convention: "flat" or "directory".
	URLs string `json:"urls,omitempty"`

	// NotFound is the logical id of the template rendered for unmatched
	// dev-mode requests. Empty disables the custom not-found page.
	NotFound string `json:"notFound,omitempty"`

	// Dev contains development server settings.
	Dev DevConfig `json:"dev,omitempty"`

	// Build contains batch generation settings.
	Build BuildConfig `json:"build,omitempty"`

	// Assets contains asset manifest settings.
	Assets AssetsConfig `json:"assets,omitempty"`

	// Search contains search index settings.
	Search SearchConfig `json:"search,omitempty"`

	// Deploy contains artifact deployment settings.
	Deploy DeployConfig `json:"deploy,omitempty"`

	// configPath stores where the config was loaded from.
	configPath string
}

// PathsConfig contains the project directory layout.
type PathsConfig struct {
	// Templates is the page templates root.
	Templates string `json:"templates,omitempty"`

	// Static is the static assets directory served as-is.
	Static string `json:"static,omitempty"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to bind the dev server to.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Watch lists extra paths to watch for changes.
	Watch []string `json:"watch,omitempty"`

	// Ignore lists glob patterns skipped by the watcher.
	Ignore []string `json:"ignore,omitempty"`

	// HotReload enables the browser live-reload channel.
	HotReload bool `json:"hotReload,omitempty"`
}

// BuildConfig contains batch generation settings.
type BuildConfig struct {
	// Output is the artifact output directory.
	Output string `json:"output,omitempty"`

	// Minify post-processes rendered HTML through the minifier.
	Minify bool `json:"minify,omitempty"`

	// Concurrency bounds the parallel fan-out over page jobs.
	// Zero means sequential.
	Concurrency int `json:"concurrency,omitempty"`
}

// AssetsConfig contains asset manifest settings.
type AssetsConfig struct {
	// Manifest is the path to the bundler's manifest.json, relative to
	// the project directory. Empty disables fingerprint resolution.
	Manifest string `json:"manifest,omitempty"`

	// Prefix is the URL prefix assets are served under.
	Prefix string `json:"prefix,omitempty"`
}

// SearchConfig contains search index settings.
type SearchConfig struct {
	// Enabled turns on search index generation after a build.
	Enabled bool `json:"enabled,omitempty"`

	// Output is the index file name within the output directory.
	Output string `json:"output,omitempty"`
}

// DeployConfig contains artifact deployment settings.
type DeployConfig struct {
	// S3 configures the S3 artifact sink. A non-empty bucket enables it.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config configures the S3 artifact sink.
type S3Config struct {
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		URLs: "flat",
		Paths: PathsConfig{
			Templates: "templates",
			Static:    "static",
		},
		Dev: DevConfig{
			Port:      DefaultPort,
			Host:      DefaultHost,
			HotReload: true,
		},
		Build: BuildConfig{
			Output:      DefaultOutput,
			Concurrency: 4,
		},
		Assets: AssetsConfig{
			Prefix: "/assets/",
		},
		Search: SearchConfig{
			Output: "search-index.json",
		},
	}
}

// Load reads vellum.json from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFromWorkingDir reads vellum.json from the current directory.
func LoadFromWorkingDir() (*Config, error) {
	return LoadFile(ConfigFileName)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no %s found in %s", ConfigFileName, filepath.Dir(path))
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if _, err := outpath.ParseMode(c.URLs); err != nil {
		return fmt.Errorf("urls: %w (%q)", err, c.URLs)
	}
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return fmt.Errorf("dev.port: %d out of range", c.Dev.Port)
	}
	if c.Build.Concurrency < 0 {
		return fmt.Errorf("build.concurrency: must not be negative")
	}
	return nil
}

// Mode returns the parsed output path mode.
func (c *Config) Mode() outpath.Mode {
	mode, _ := outpath.ParseMode(c.URLs)
	return mode
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return "."
	}
	return filepath.Dir(c.configPath)
}

// TemplatesDir returns the absolute templates root.
func (c *Config) TemplatesDir() string {
	return filepath.Join(c.Dir(), c.Paths.Templates)
}

// StaticDir returns the absolute static assets directory.
func (c *Config) StaticDir() string {
	return filepath.Join(c.Dir(), c.Paths.Static)
}

// OutputDir returns the absolute artifact output directory.
func (c *Config) OutputDir() string {
	return filepath.Join(c.Dir(), c.Build.Output)
}

func (c *Config) applyDefaults() {
	if c.URLs == "" {
		c.URLs = "flat"
	}
	if c.Paths.Templates == "" {
		c.Paths.Templates = "templates"
	}
	if c.Paths.Static == "" {
		c.Paths.Static = "static"
	}
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}
	if c.Assets.Prefix == "" {
		c.Assets.Prefix = "/assets/"
	}
	if c.Search.Output == "" {
		c.Search.Output = "search-index.json"
	}
}
