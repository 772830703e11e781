// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/logging"
	"github.com/jeranaias/rolechat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rolechat configuration.
type Config struct {
	API  APIConfig  `toml:"api" json:"api"`
	Chat ChatConfig `toml:"chat" json:"chat"`
	Log  LogConfig  `toml:"log" json:"log"`
}

// APIConfig controls the backend connection.
type APIConfig struct {
	// BaseURL is the API root, e.g. https://rp.example.com/api
	BaseURL string `toml:"base_url" json:"base_url"`

	// Token is the bearer token. Issuing it is out of scope; it is pasted in
	// or written here by another tool.
	Token string `toml:"token" json:"token"`

	// TimeoutSecs bounds non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	MaxRetries        int     `toml:"max_retries" json:"max_retries"`
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `toml:"burst" json:"burst"`
}

// ChatConfig controls chat behavior.
type ChatConfig struct {
	// Stream asks for incremental replies by default.
	Stream bool `toml:"stream" json:"stream"`

	// ExcerptWidth bounds the sidebar preview in terminal columns.
	ExcerptWidth int `toml:"excerpt_width" json:"excerpt_width"`

	// Language picks the error message language (en, zh-Hans, ...).
	Language string `toml:"language" json:"language"`

	// DefaultModel is used when creating sessions without --model.
	DefaultModel string `toml:"default_model" json:"default_model"`
}

// LogConfig controls diagnostics.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

// Timeout returns the request timeout as a duration.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSecs) * time.Second
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://127.0.0.1:8080/api",
			TimeoutSecs:       30,
			MaxRetries:        2,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Chat: ChatConfig{
			Stream:       true,
			ExcerptWidth: 60,
			Language:     "en",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// dirEnv overrides the configuration directory.
const dirEnv = "ROLECHAT_HOME"

// ConfigDir returns the configuration directory (~/.rolechat).
func ConfigDir() (string, error) {
	if dir := os.Getenv(dirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".rolechat"), nil
}

// ConfigPathTOML returns the path to the TOML configuration file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON configuration file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from the default locations. TOML wins over
// JSON; with neither present the defaults are used. Environment overrides
// are applied last. The returned path is the file that was read, or "".
func Load() (*Config, string, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			return nil, "", err
		}
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err := LoadFromPath(path)
			return cfg, path, err
		}
	}

	cfg := Default()
	if err := finish(cfg); err != nil {
		return nil, "", err
	}
	return cfg, "", nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func finish(cfg *Config) error {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes cfg to the default TOML location.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path atomically with owner-only permissions, since
// the file holds the bearer token.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# rolechat configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg to path as indented JSON, atomically.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Update applies fn to the configuration stored at path and writes it back
// in the same format. Environment overrides are not applied, so they never
// leak into the file. A missing file starts from the defaults.
func Update(path string, fn func(*Config)) error {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if strings.HasSuffix(path, ".json") {
			err = LoadJSON(cfg, path)
		} else {
			err = LoadTOML(cfg, path)
		}
		if err != nil {
			return err
		}
	}

	fn(cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if strings.HasSuffix(path, ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// =============================================================================
// DISPLAY
// =============================================================================

// Redacted returns a copy safe to print: the token is masked.
func (c *Config) Redacted() *Config {
	cp := *c
	if t := cp.API.Token; t != "" {
		if len(t) > 8 {
			cp.API.Token = t[:4] + "..." + t[len(t)-4:]
		} else {
			cp.API.Token = "****"
		}
	}
	return &cp
}

// String renders the configuration as TOML with the token masked.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// ClientConfig builds the API client configuration.
func (c *Config) ClientConfig() *api.ClientConfig {
	cc := api.DefaultConfig()
	cc.BaseURL = c.API.BaseURL
	cc.Timeout = c.API.Timeout()
	cc.MaxRetries = c.API.MaxRetries
	cc.RequestsPerSecond = c.API.RequestsPerSecond
	cc.Burst = c.API.Burst
	return cc
}

// LogOptions builds the logger options; output defaults to stderr.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: logging.Format(strings.ToLower(c.Log.Format)),
	}
}
