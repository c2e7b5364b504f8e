// Package config provides configuration types and defaults for devscripts.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zjrosen/devscripts/internal/log"
)

// ProfileDev is the only profile under which the dispatch endpoint is mounted.
const ProfileDev = "dev"

// Config holds all configuration options for devscripts.
type Config struct {
	Profile string          `mapstructure:"profile"`
	HTTP    HTTPConfig      `mapstructure:"http"`
	Scripts ScriptsConfig   `mapstructure:"scripts"`
	Client  ClientConfig    `mapstructure:"client"`
	Tracing TracingConfig   `mapstructure:"tracing"`
	Log     LogConfig       `mapstructure:"log"`
	Flags   map[string]bool `mapstructure:"flags"`
}

// HTTPConfig holds the address of the dispatch endpoint.
// The server listens on it and the trigger client connects to it.
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port, bracketing IPv6 hosts.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// ScriptsConfig holds dispatch endpoint and discovery settings.
type ScriptsConfig struct {
	// Path is the base path the dispatcher is mounted under (default: /scripts).
	Path string `mapstructure:"path"`
	// Dir is the directory the serve command discovers Lua scripts from.
	Dir string `mapstructure:"dir"`
	// AppPackages are extra import path prefixes kept in failure traces.
	AppPackages []string `mapstructure:"app_packages"`
}

// ClientConfig holds trigger client settings.
type ClientConfig struct {
	// Timeout bounds one trigger request end to end. Zero disables the timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"`      // "none", "file", "stdout", "otlp"
	FilePath     string  `mapstructure:"file_path"`     // required when exporter is "file"
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"` // default localhost:4317
	SampleRate   float64 `mapstructure:"sample_rate"`   // 0.0 - 1.0
	ServiceName  string  `mapstructure:"service_name"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"` // empty logs to stderr
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/devscripts/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "devscripts", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Profile: ProfileDev,
		HTTP: HTTPConfig{
			Host: "localhost",
			Port: 8080,
		},
		Scripts: ScriptsConfig{
			Path: "/scripts",
			Dir:  filepath.Join(".devscripts", "scripts"),
		},
		Client: ClientConfig{
			Timeout: 10 * time.Minute,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
			ServiceName:  "devscripts",
		},
		Log: LogConfig{
			Level: "info",
		},
		Flags: map[string]bool{},
	}
}

// Validate checks the whole configuration.
func Validate(cfg Config) error {
	if err := ValidateHTTP(cfg.HTTP); err != nil {
		return err
	}
	if err := ValidateScripts(cfg.Scripts); err != nil {
		return err
	}
	if cfg.Client.Timeout < 0 {
		return fmt.Errorf("client.timeout must not be negative, got %s", cfg.Client.Timeout)
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateHTTP checks the endpoint address.
func ValidateHTTP(h HTTPConfig) error {
	if strings.TrimSpace(h.Host) == "" {
		return fmt.Errorf("http.host is required")
	}
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", h.Port)
	}
	return nil
}

// ValidateScripts checks the base path shape.
func ValidateScripts(s ScriptsConfig) error {
	if !strings.HasPrefix(s.Path, "/") {
		return fmt.Errorf("scripts.path must start with \"/\", got %q", s.Path)
	}
	if len(s.Path) > 1 && strings.HasSuffix(s.Path, "/") {
		return fmt.Errorf("scripts.path must not end with \"/\", got %q", s.Path)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// IsDev reports whether the dispatch endpoint may be served.
func (c Config) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Profile), ProfileDev)
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# devscripts configuration

# The dispatch endpoint is only served under the dev profile.
profile: dev

# Address of the dispatch endpoint (used by both serve and run)
http:
  host: localhost
  port: 8080

scripts:
  path: /scripts              # Base path of the dispatch endpoint
  dir: .devscripts/scripts    # Lua scripts discovered by "devscripts serve"
  # Extra package prefixes kept in failure traces (the devscripts module is always kept)
  # app_packages:
  #   - github.com/acme/app

client:
  timeout: 10m                # 0 disables the request timeout

log:
  level: info                 # debug, info, warn, error
  # path: devscripts.log      # Defaults to stderr

# Feature flags
flags:
  serialize-runs: false       # Run concurrent dispatches of the same script one at a time

# Tracing (disabled by default)
# tracing:
#   enabled: true
#   exporter: file            # none, file, stdout, otlp
#   file_path: ~/.config/devscripts/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
