// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chathub/internal/cloud"
	"github.com/jeranaias/chathub/internal/export"
	"github.com/jeranaias/chathub/internal/model"
	"github.com/jeranaias/chathub/internal/storage"
	"github.com/jeranaias/chathub/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete chathub configuration.
type Config struct {
	// OpenRouter connection
	APIKey            string  `toml:"api_key" json:"api_key"`
	BaseURL           string  `toml:"base_url" json:"base_url"`
	Model             string  `toml:"model" json:"model"`
	FallbackModel     string  `toml:"fallback_model" json:"fallback_model"`
	Temperature       float64 `toml:"temperature" json:"temperature"`
	MaxTokens         int     `toml:"max_tokens" json:"max_tokens"`
	SystemPrompt      string  `toml:"system_prompt" json:"system_prompt"`
	SiteURL           string  `toml:"site_url" json:"site_url"`
	SiteName          string  `toml:"site_name" json:"site_name"`
	TimeoutSecs       int     `toml:"timeout_secs" json:"timeout_secs"`
	RequestsPerMinute int     `toml:"requests_per_minute" json:"requests_per_minute"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" json:"log_level"`

	Storage StorageConfig `toml:"storage" json:"storage"`
	Server  ServerConfig  `toml:"server" json:"server"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// StorageConfig selects where chats are kept.
type StorageConfig struct {
	// Backend is file, sqlite or memory.
	Backend string `toml:"backend" json:"backend"`
	// DataDir defaults to ~/.chathub/data.
	DataDir string `toml:"data_dir" json:"data_dir"`
}

// ServerConfig configures `chathub serve`.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	// Markdown renders assistant replies with glamour on a terminal.
	Markdown   bool `toml:"markdown" json:"markdown"`
	PageWidth  int  `toml:"page_width" json:"page_width"`
	PageHeight int  `toml:"page_height" json:"page_height"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:       cloud.DefaultOpenRouterURL,
		Model:         model.DefaultModelID,
		FallbackModel: model.DefaultModelID,
		Temperature:   cloud.DefaultTemperature,
		MaxTokens:     cloud.DefaultMaxTokens,
		SystemPrompt:  cloud.DefaultSystemPrompt,
		SiteURL:       cloud.DefaultSiteURL,
		SiteName:      cloud.DefaultSiteName,
		TimeoutSecs:   int(cloud.DefaultTimeout.Seconds()),
		LogLevel:      "warn",
		Storage: StorageConfig{
			Backend: storage.BackendFile,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		UI: UIConfig{
			Markdown:   true,
			PageWidth:  export.DefaultPageWidth,
			PageHeight: export.DefaultPageHeight,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chathub configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chathub"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir returns the directory chats are stored in.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return expandHome(c.Storage.DataDir)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// ensureSecurePermissions tightens a config file to 0600. It holds the API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.chathub/config.toml when it exists, then applies environment
// overrides, defaults and validation. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit file. A missing file yields the
// defaults plus environment overrides.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path on top of cfg, so keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		slog.Warn("could not ensure secure permissions on config", "path", path, "error", err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		slog.Warn("ignoring unknown config keys", "path", path, "keys", strings.Join(keys, ", "))
	}
	return nil
}

// SetDefaults fills zero values that have no meaningful zero setting.
func (c *Config) SetDefaults() {
	d := Default()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.FallbackModel == "" {
		c.FallbackModel = d.FallbackModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	if c.SiteName == "" {
		c.SiteName = d.SiteName
	}
	if c.SiteURL == "" {
		c.SiteURL = d.SiteURL
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = d.TimeoutSecs
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.UI.PageWidth == 0 {
		c.UI.PageWidth = d.UI.PageWidth
	}
	if c.UI.PageHeight == 0 {
		c.UI.PageHeight = d.UI.PageHeight
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# chathub configuration file\n")
	buf.WriteString("# Environment variables CHATHUB_* override these values.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks ranges and enumerations. The API key is not required here;
// commands that talk to the API check for it themselves.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[/path]", c.BaseURL),
		})
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, ValidationError{Field: "model", Message: "must not be empty"})
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "temperature",
			Message: fmt.Sprintf("%.2f out of range, must be between 0 and 2", c.Temperature),
		})
	}
	if c.MaxTokens < 1 {
		errs = append(errs, ValidationError{Field: "max_tokens", Message: "must be positive"})
	}
	if c.TimeoutSecs < 1 {
		errs = append(errs, ValidationError{Field: "timeout_secs", Message: "must be positive"})
	}
	if c.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "requests_per_minute", Message: "cannot be negative"})
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.LogLevel),
		})
	}
	switch c.Storage.Backend {
	case storage.BackendFile, storage.BackendSQLite, storage.BackendMemory:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend),
		})
	}
	if c.UI.PageWidth < 20 {
		errs = append(errs, ValidationError{Field: "ui.page_width", Message: "must be at least 20"})
	}
	if c.UI.PageHeight < 10 {
		errs = append(errs, ValidationError{Field: "ui.page_height", Message: "must be at least 10"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - CHATHUB_API_KEY or OPENROUTER_API_KEY: overrides api_key
//   - CHATHUB_MODEL: overrides model
//   - CHATHUB_BASE_URL: overrides base_url
//   - CHATHUB_DATA_DIR: overrides storage.data_dir
//   - CHATHUB_STORAGE: overrides storage.backend
//   - CHATHUB_LOG_LEVEL: overrides log_level
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.APIKey = key
	}
	if key := os.Getenv("CHATHUB_API_KEY"); key != "" {
		c.APIKey = key
	}
	if m := os.Getenv("CHATHUB_MODEL"); m != "" {
		c.Model = m
	}
	if u := os.Getenv("CHATHUB_BASE_URL"); u != "" {
		c.BaseURL = u
	}
	if dir := os.Getenv("CHATHUB_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if backend := os.Getenv("CHATHUB_STORAGE"); backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if level := os.Getenv("CHATHUB_LOG_LEVEL"); level != "" {
		c.LogLevel = strings.ToLower(level)
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its TOML key, e.g. "storage.backend".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by its TOML key. String values are parsed into the
// field's type, so CLI arguments can be passed through unchanged.
func (c *Config) Set(key string, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: expected an integer: %w", key, err)
		}
		field.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: expected a number: %w", key, err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false: %w", key, err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("%s is a section, not a value", key)
	}
	return nil
}

// lookup walks the struct by toml tag names.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	if len(parts) == 0 || parts[0] == "" {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		found := false
		for j := 0; j < v.NumField(); j++ {
			if tomlName(v.Type().Field(j)) == part {
				v = v.Field(j)
				found = true
				break
			}
		}
		if !found {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
	}
	return v, nil
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return name
}

// Keys returns every settable key in dot notation.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := prefix + tomlName(f)
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, name+".")
				continue
			}
			keys = append(keys, name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// =============================================================================
// UTILITIES
// =============================================================================

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String renders the configuration as JSON with the API key redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}

// Redacted returns a copy suitable for display, with the API key masked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.APIKey != "" {
		safe.APIKey = "[REDACTED]"
	}
	return safe
}
