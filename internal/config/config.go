// Package config loads the settings of the surface server from a YAML file
// with environment variable overrides.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file and default values.
const (
	EnvHTTPAddr = "SURFACE_HTTP_ADDR"
	EnvRPCAddr  = "SURFACE_RPC_ADDR"
	EnvDB       = "SURFACE_DB"
	EnvLogLevel = "SURFACE_LOG_LEVEL"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// Addr is the listen address. Empty disables the HTTP transport.
	Addr string `yaml:"addr"`
	// MaxBodyBytes limits POST bodies. Zero keeps the App default.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gte=0"`
	// CORS installs the permissive CORS middleware.
	CORS bool `yaml:"cors"`
}

// RPCConfig configures the persistent JSON-RPC listener.
type RPCConfig struct {
	// Addr is the TCP listen address. Empty disables the listener.
	Addr string `yaml:"addr"`
}

// StoreConfig selects the demo host's account store.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory sqlite"`
	// DSN is the SQLite database path. Supports '~' expansion.
	DSN string `yaml:"dsn" validate:"required_if=Driver sqlite"`
}

// DispatchConfig configures request decoding and error reporting.
type DispatchConfig struct {
	ParamEncoding      string `yaml:"param_encoding" validate:"omitempty,oneof=either keyed positional"`
	ParamSchemas       bool   `yaml:"param_schemas"`
	MaskInternalErrors bool   `yaml:"mask_internal_errors"`
}

// ClientConfig configures client generation at startup.
type ClientConfig struct {
	// OutDir receives the client document. Empty disables generation.
	OutDir     string `yaml:"out_dir"`
	ClassName  string `yaml:"class_name"`
	Positional bool   `yaml:"positional"`
	MethodCase string `yaml:"method_case" validate:"omitempty,oneof=preserve camel pascal snake"`
	// Camel is shorthand for method_case: camel.
	Camel      bool `yaml:"camel"`
	Schemas    bool `yaml:"schemas"`
}

// StubCase returns the stub name case for the client document.
func (c ClientConfig) StubCase() string {
	if c.Camel {
		return "camel"
	}
	return c.MethodCase
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Config is the root configuration of the surface server.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	RPC      RPCConfig      `yaml:"rpc"`
	Store    StoreConfig    `yaml:"store"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Client   ClientConfig   `yaml:"client"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultConfig returns a configuration populated with default values and
// the environment overrides applied.
func DefaultConfig() *Config {
	cfg := &Config{
		HTTP:     HTTPConfig{Addr: "127.0.0.1:8080"},
		Store:    StoreConfig{Driver: DriverMemory},
		Dispatch: DispatchConfig{ParamEncoding: "either"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
	applyEnvironmentOverrides(cfg)
	return cfg
}

// LoadFromFile loads configuration from the YAML file at path. It starts
// from the defaults, merges the file and applies environment overrides.
// Supports '~' expansion in the path.
func LoadFromFile(path string) (*Config, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file YAML: %s", path)
	}
	applyEnvironmentOverrides(cfg)
	if cfg.Store.DSN, err = expandHome(cfg.Store.DSN); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config file: %s", path)
	}
	return cfg, nil
}

// Load returns LoadFromFile(path), or DefaultConfig when path is empty.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		return cfg, cfg.Validate()
	}
	return LoadFromFile(path)
}

// Validate checks the struct tag constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var valErrs validator.ValidationErrors
		if errors.As(err, &valErrs) {
			msgs := make([]string, 0, len(valErrs))
			for _, ve := range valErrs {
				msgs = append(msgs, ve.Namespace()+" failed "+ve.Tag())
			}
			return errors.Newf("config validation failed: %s", strings.Join(msgs, "; "))
		}
		return errors.Wrap(err, "config validation failed")
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// applyEnvironmentOverrides applies the SURFACE_* environment variables.
// Environment variables take precedence over the file and the defaults.
func applyEnvironmentOverrides(cfg *Config) {
	if v, ok := os.LookupEnv(EnvHTTPAddr); ok {
		cfg.HTTP.Addr = v
	}
	if v, ok := os.LookupEnv(EnvRPCAddr); ok {
		cfg.RPC.Addr = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		if v == DriverMemory {
			cfg.Store = StoreConfig{Driver: DriverMemory}
		} else {
			if expanded, err := expandHome(v); err == nil {
				v = expanded
			}
			cfg.Store = StoreConfig{Driver: DriverSQLite, DSN: v}
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory to expand path")
	}
	return filepath.Join(home, path[1:]), nil
}
