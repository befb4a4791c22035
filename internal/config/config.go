// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads mibo settings from YAML and the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mibo-ai/mibo-cli/internal/delivery"
	"github.com/mibo-ai/mibo-cli/internal/trace"
	"github.com/mibo-ai/mibo-cli/internal/tracing"
	"github.com/mibo-ai/mibo-cli/internal/tracing/redact"
	"github.com/mibo-ai/mibo-cli/pkg/errors"
)

// Defaults applied when a setting is absent.
const (
	DefaultPIIKeys          = "email, password, phone, address"
	DefaultEnvironment      = "production"
	DefaultVersion          = "1.0.0"
	DefaultAdditionalFields = "{}"
	DefaultTimeoutSeconds   = 30
	DefaultListenAddr       = "127.0.0.1:8787"
	DefaultMaxBodyBytes     = 10 * 1024 * 1024
	DefaultRetention        = 30 * 24 * time.Hour
)

// Config represents the complete mibo configuration.
type Config struct {
	Credentials CredentialsConfig `yaml:"credentials"`
	Trace       TraceConfig       `yaml:"trace"`
	Options     OptionsConfig     `yaml:"options"`
	Log         LogConfig         `yaml:"log"`
	History     HistoryConfig     `yaml:"history"`
	Server      ServerConfig      `yaml:"server"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// CredentialsConfig holds the collector endpoint and the fallback API key.
// The API key here is the lowest-priority source; see internal/secrets.
type CredentialsConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
}

// TraceConfig controls what goes into the payload.
type TraceConfig struct {
	PlatformID      string         `yaml:"platform_id,omitempty"`
	ExternalID      string         `yaml:"external_id,omitempty"`
	CleanPII        bool           `yaml:"clean_pii"`
	PIIKeys         string         `yaml:"pii_keys"`
	IncludeMetadata bool           `yaml:"include_metadata"`
	Metadata        MetadataConfig `yaml:"metadata"`
}

// MetadataConfig holds the optional metadata block.
type MetadataConfig struct {
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`

	// AdditionalFields is a JSON object in text form, merged into metadata.
	AdditionalFields string `yaml:"additional_fields"`
}

// OptionsConfig holds per-delivery options.
type OptionsConfig struct {
	// ServerURL overrides Credentials.ServerURL.
	ServerURL string `yaml:"server_url,omitempty"`

	// Timeout is the request timeout in seconds.
	Timeout int `yaml:"timeout"`

	ContinueOnFail bool `yaml:"continue_on_fail"`

	// RateLimit caps outbound deliveries per second in serve mode. Zero
	// disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: trace, debug, info, warn, error.
	Level string `yaml:"level"`

	// Format: json, text.
	Format string `yaml:"format"`
}

// HistoryConfig configures the local attempt log.
type HistoryConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path,omitempty"`
	Retention time.Duration `yaml:"retention"`
}

// ServerConfig configures `mibo serve`.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// TelemetryConfig selects where delivery and request spans are exported.
// Trace context is propagated to the collector either way.
type TelemetryConfig struct {
	// Exporter: none, otlp-http, console. Empty means none.
	Exporter string `yaml:"exporter,omitempty"`

	// Endpoint is host:port or a URL. Empty defers to OTEL_EXPORTER_OTLP_*.
	Endpoint string            `yaml:"endpoint,omitempty"`
	URLPath  string            `yaml:"url_path,omitempty"`
	Insecure bool              `yaml:"insecure,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Trace: TraceConfig{
			PIIKeys: DefaultPIIKeys,
			Metadata: MetadataConfig{
				Environment:      DefaultEnvironment,
				Version:          DefaultVersion,
				AdditionalFields: DefaultAdditionalFields,
			},
		},
		Options: OptionsConfig{
			Timeout: DefaultTimeoutSeconds,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		History: HistoryConfig{
			Enabled:   true,
			Retention: DefaultRetention,
		},
		Server: ServerConfig{
			Addr:            DefaultListenAddr,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    DefaultMaxBodyBytes,
		},
	}
}

// Load loads configuration from an optional YAML file, fills defaults, applies
// environment overrides and validates the result. Environment variables take
// precedence over the file. An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &errors.ConfigurationError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Hint:   "Check that the file exists and is valid YAML",
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values so minimal files work.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Trace.Metadata.Environment == "" {
		c.Trace.Metadata.Environment = defaults.Trace.Metadata.Environment
	}
	if c.Trace.Metadata.Version == "" {
		c.Trace.Metadata.Version = defaults.Trace.Metadata.Version
	}
	if strings.TrimSpace(c.Trace.Metadata.AdditionalFields) == "" {
		c.Trace.Metadata.AdditionalFields = defaults.Trace.Metadata.AdditionalFields
	}
	if c.Options.Timeout == 0 {
		c.Options.Timeout = defaults.Options.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.History.Retention == 0 {
		c.History.Retention = defaults.History.Retention
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// loadFromEnv applies environment overrides. Unparseable numeric and boolean
// values are ignored.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("MIBO_SERVER_URL"); val != "" {
		c.Options.ServerURL = val
	}
	if val := os.Getenv("MIBO_PLATFORM_ID"); val != "" {
		c.Trace.PlatformID = val
	}
	if val := os.Getenv("MIBO_EXTERNAL_ID"); val != "" {
		c.Trace.ExternalID = val
	}
	if val := os.Getenv("MIBO_CLEAN_PII"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Trace.CleanPII = b
		}
	}
	if val := os.Getenv("MIBO_PII_KEYS"); val != "" {
		c.Trace.PIIKeys = val
	}
	if val := os.Getenv("MIBO_TIMEOUT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Options.Timeout = n
		}
	}
	if val := os.Getenv("MIBO_CONTINUE_ON_FAIL"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Options.ContinueOnFail = b
		}
	}
	if val := os.Getenv("MIBO_HISTORY_PATH"); val != "" {
		c.History.Path = val
	}
	if val := os.Getenv("MIBO_LISTEN_ADDR"); val != "" {
		c.Server.Addr = val
	}
	if val := os.Getenv("MIBO_TRACES_EXPORTER"); val != "" {
		c.Telemetry.Exporter = strings.ToLower(val)
	}
	if val := os.Getenv("MIBO_OTLP_ENDPOINT"); val != "" {
		c.Telemetry.Endpoint = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
}

// Validate checks the configuration and returns a *errors.ConfigurationError
// for the first problem found.
func (c *Config) Validate() error {
	for _, u := range []struct{ key, value string }{
		{"credentials.server_url", c.Credentials.ServerURL},
		{"options.server_url", c.Options.ServerURL},
	} {
		if u.value == "" {
			continue
		}
		if err := validateURL(u.value); err != nil {
			return &errors.ConfigurationError{
				Key:    u.key,
				Reason: err.Error(),
				Hint:   "Use an absolute http or https URL such as https://api.mibo-ai.com",
			}
		}
	}

	if c.Options.Timeout <= 0 {
		return &errors.ConfigurationError{
			Key:    "options.timeout",
			Reason: fmt.Sprintf("timeout must be positive, got %d", c.Options.Timeout),
			Hint:   "Set the timeout in whole seconds",
		}
	}
	if c.Options.RateLimit < 0 {
		return &errors.ConfigurationError{Key: "options.rate_limit", Reason: "rate limit cannot be negative"}
	}
	if c.Options.RateBurst < 0 {
		return &errors.ConfigurationError{Key: "options.rate_burst", Reason: "rate burst cannot be negative"}
	}

	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return &errors.ConfigurationError{
			Key:    "log.level",
			Reason: fmt.Sprintf("unknown log level %q", c.Log.Level),
			Hint:   "Use one of trace, debug, info, warn, error",
		}
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return &errors.ConfigurationError{
			Key:    "log.format",
			Reason: fmt.Sprintf("unknown log format %q", c.Log.Format),
			Hint:   "Use json or text",
		}
	}

	if !tracing.ValidExporter(c.Telemetry.Exporter) {
		return &errors.ConfigurationError{
			Key:    "telemetry.exporter",
			Reason: fmt.Sprintf("unknown span exporter %q", c.Telemetry.Exporter),
			Hint:   "Use none, otlp-http or console",
		}
	}
	if strings.Contains(c.Telemetry.Endpoint, "://") {
		if err := validateURL(c.Telemetry.Endpoint); err != nil {
			return &errors.ConfigurationError{Key: "telemetry.endpoint", Reason: err.Error()}
		}
	}

	if c.History.Retention < 0 {
		return &errors.ConfigurationError{Key: "history.retention", Reason: "retention cannot be negative"}
	}
	if c.Server.MaxBodyBytes < 0 {
		return &errors.ConfigurationError{Key: "server.max_body_bytes", Reason: "body limit cannot be negative"}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host")
	}
	return nil
}

// ResolveServerURL picks the collector base URL: override, then
// options.server_url, then credentials.server_url, then the default.
func (c *Config) ResolveServerURL(override string) string {
	if strings.TrimSpace(override) == "" {
		override = c.Options.ServerURL
	}
	return delivery.ResolveServerURL(override, c.Credentials.ServerURL)
}

// DeliveryOptions converts the options block into pipeline options.
func (c *Config) DeliveryOptions() delivery.Options {
	return delivery.Options{
		ServerURL: c.ResolveServerURL(""),
		Timeout:   time.Duration(c.Options.Timeout) * time.Second,
		Strategy:  delivery.StrategyFor(c.Options.ContinueOnFail),
	}
}

// RedactKeys returns the keys to mask, or nil when PII cleaning is off.
func (c *Config) RedactKeys() redact.KeySet {
	if !c.Trace.CleanPII {
		return nil
	}
	return redact.ParseKeys(c.Trace.PIIKeys)
}

// MetadataFields returns the metadata block for the builder, or nil when
// include_metadata is off. Additional fields are parsed later by the builder
// so a bad value surfaces as a payload configuration error.
func (c *Config) MetadataFields() *trace.MetadataFields {
	if !c.Trace.IncludeMetadata {
		return nil
	}
	return &trace.MetadataFields{
		Environment:      c.Trace.Metadata.Environment,
		Version:          c.Trace.Metadata.Version,
		AdditionalFields: c.Trace.Metadata.AdditionalFields,
	}
}

// HistoryPath returns the configured history database path, or the default
// under the data directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// Save writes the configuration as YAML with owner-only permissions. The
// file is replaced atomically.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
