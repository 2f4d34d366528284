// Package config loads and saves the blendup application settings: where the
// build index lives, how builds are named per operating system, and where the
// staging directory and state file are kept. Settings are stored as YAML in
// the user config directory; a missing file yields the defaults.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glorpus-work/blendup/pkg/archive"
	"github.com/glorpus-work/blendup/pkg/errors"
	"github.com/glorpus-work/blendup/pkg/fsutil"
	"github.com/glorpus-work/blendup/pkg/platform"
	"github.com/glorpus-work/blendup/pkg/selfupdate"
	"github.com/glorpus-work/blendup/pkg/staging"
	"github.com/glorpus-work/blendup/pkg/state"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`

	// Platforms overrides the index naming per operating system, keyed by
	// windows, linux or macos.
	Platforms map[string]PlatformConfig `yaml:"platforms,omitempty"`
}

// PlatformConfig overrides how builds for one OS are named on the index.
type PlatformConfig struct {
	Tag       string `yaml:"tag,omitempty"`
	Extension string `yaml:"extension,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// Index settings
	BaseURL string `yaml:"base_url"`
	Product string `yaml:"product"`

	// Local paths
	StagingDir string `yaml:"staging_dir,omitempty"`
	StateFile  string `yaml:"state_file,omitempty"`

	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	UserAgent   string        `yaml:"user_agent,omitempty"`

	// Post-install Tengo script, empty to disable
	PostInstallHook string `yaml:"post_install_hook,omitempty"`

	// Self-update check
	ReleaseFeedURL  string `yaml:"release_feed_url,omitempty"`
	CheckForUpdates bool   `yaml:"check_for_updates"`

	// Output settings
	OutputFormat string `yaml:"output_format"` // text, json
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
}

// Default configuration values.
const (
	// DefaultBaseURL is the Blender builder download page.
	DefaultBaseURL = "https://builder.blender.org/download/"

	// DefaultProduct is the filename prefix of the builds on the index.
	DefaultProduct = "blender"

	// DefaultHTTPTimeout of zero disables the client timeout.
	DefaultHTTPTimeout = time.Duration(0)

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			BaseURL:         DefaultBaseURL,
			Product:         DefaultProduct,
			StagingDir:      staging.DefaultDir(),
			StateFile:       state.DefaultPath,
			HTTPTimeout:     DefaultHTTPTimeout,
			ReleaseFeedURL:  selfupdate.DefaultFeedURL,
			CheckForUpdates: true,
			OutputFormat:    "text",
			LogLevel:        "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file is not an
// error; the defaults are returned instead.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidPath, err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader. Keys missing
// from the document keep their default value.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigParse, err)
	}
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyDefaults() {
	d := DefaultConfig().Settings
	if c.Settings.BaseURL == "" {
		c.Settings.BaseURL = d.BaseURL
	}
	if c.Settings.Product == "" {
		c.Settings.Product = d.Product
	}
	if c.Settings.StagingDir == "" {
		c.Settings.StagingDir = d.StagingDir
	}
	if c.Settings.StateFile == "" {
		c.Settings.StateFile = d.StateFile
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = d.OutputFormat
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = d.LogLevel
	}
}

// SaveConfig writes the configuration to path through a temporary file so a
// crash never leaves a half-written config behind.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to create config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to encode config")
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.WrapKind(errors.ErrFilesystem, err, "failed to replace config file")
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal config")
	}
	return data, nil
}

// Validate checks if the configuration is valid. Every error wraps
// errors.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", errors.ErrInvalidConfiguration)
	}
	if err := validateSettings(c.Settings); err != nil {
		return err
	}
	return validatePlatforms(c.Platforms)
}

func validateSettings(s Settings) error {
	if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: base_url %q is not an absolute URL", errors.ErrInvalidConfiguration, s.BaseURL)
	}
	if strings.TrimSpace(s.Product) == "" {
		return fmt.Errorf("%w: product cannot be empty", errors.ErrInvalidConfiguration)
	}
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("%w: http_timeout cannot be negative", errors.ErrInvalidConfiguration)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return fmt.Errorf("%w: invalid output_format %q (valid: text, json)", errors.ErrInvalidConfiguration, s.OutputFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return fmt.Errorf("%w: invalid log_level %q (valid: debug, info, warn, error)", errors.ErrInvalidConfiguration, s.LogLevel)
	}
	return nil
}

func validatePlatforms(platforms map[string]PlatformConfig) error {
	for name, p := range platforms {
		if _, err := platform.ParseOS(name); err != nil {
			return fmt.Errorf("%w: platforms: %w", errors.ErrInvalidOS, err)
		}
		if p.Extension != "" && !archive.Supported("build."+strings.TrimPrefix(p.Extension, ".")) {
			return fmt.Errorf("%w: platforms.%s: unsupported extension %q", errors.ErrInvalidConfiguration, name, p.Extension)
		}
	}
	return nil
}

// Overrides converts the platforms section into per-OS target overrides.
func (c *Config) Overrides() platform.Overrides {
	if len(c.Platforms) == 0 {
		return nil
	}
	out := make(platform.Overrides, len(c.Platforms))
	for name, p := range c.Platforms {
		target, err := platform.ParseOS(name)
		if err != nil {
			continue
		}
		out[target] = platform.Target{OS: target, Tag: p.Tag, Extension: p.Extension}
	}
	return out
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "blendup", "config.yaml"), nil
}
