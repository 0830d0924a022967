// Package config loads the server's Config struct via viper, sourced in
// order: CLI flag (port only) -> VAULTD_*-prefixed environment variables ->
// YAML config file -> defaults. Environment variables are applied only to
// keys that the config file sets; with no config file, none are read. Grounded on the teacher's pkg/config,
// trimmed to this server's concerns (no NFS/Kerberos/lock-manager fields)
// and given a ChunkSize/transfer-tuning section the teacher has no
// equivalent for.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cloudvault/vaultd/internal/bytesize"
)

// Config is the server's full runtime configuration.
type Config struct {
	// Port is the TCP port the wire protocol listener binds.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// ChunkSize is the fixed chunk size the server advertises in
	// FILE_UPLOAD_INIT_RESPONSE/FILE_DOWNLOAD_INIT_RESPONSE.
	ChunkSize bytesize.ByteSize `mapstructure:"chunk_size" yaml:"chunk_size"`

	// MaxConcurrentClients bounds the session manager's accepted
	// connection count; beyond it, new connections are rejected (§4.8).
	MaxConcurrentClients int `mapstructure:"max_concurrent_clients" validate:"required,gt=0" yaml:"max_concurrent_clients"`

	// SessionTimeout is the idle duration after which a session is closed
	// and, for incomplete uploads, the janitor reaps their partial state.
	SessionTimeout time.Duration `mapstructure:"session_timeout" validate:"required,gt=0" yaml:"session_timeout"`

	// ExperimentalChunkEncryption opts into internal/wire/experimental's
	// secretbox-wrapped upload chunk codec (SPEC_FULL §4 Open Question 1).
	// Off by default; never a security boundary on its own.
	ExperimentalChunkEncryption bool `mapstructure:"experimental_chunk_encryption" yaml:"experimental_chunk_encryption"`

	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Metadata  MetadataConfig  `mapstructure:"metadata" yaml:"metadata"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Admin     AdminAPIConfig  `mapstructure:"admin_api" yaml:"admin_api"`
}

// LoggingConfig controls internal/logger's slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// StorageConfig selects and configures the physical storage backend (C6).
type StorageConfig struct {
	// Backend is "localfs" (default) or "s3".
	Backend string `mapstructure:"backend" validate:"required,oneof=localfs s3" yaml:"backend"`

	// Root is the local filesystem root, used when Backend is "localfs".
	Root string `mapstructure:"root" yaml:"root"`

	S3 S3Config `mapstructure:"s3" yaml:"s3"`
}

// S3Config configures internal/storage/s3backend.
type S3Config struct {
	Bucket string `mapstructure:"bucket" yaml:"bucket"`
	Region string `mapstructure:"region" yaml:"region"`
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`
	// Endpoint overrides the default AWS endpoint, for S3-compatible
	// services (MinIO, R2, ...). Empty uses the AWS default resolver.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
}

// MetadataConfig selects and configures the metadata store backend
// (C3/C4/C5).
type MetadataConfig struct {
	// Backend is "memory" (default, zero-config), "sql", or "badger".
	Backend string `mapstructure:"backend" validate:"required,oneof=memory sql badger" yaml:"backend"`

	// DSN is the database connection string, used when Backend is "sql".
	// A sqlite:// DSN uses the pure-Go glebarez driver; postgres:// uses
	// pgx/gorm.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`

	// BadgerPath is the embedded KV store's data directory, used when
	// Backend is "badger".
	BadgerPath string `mapstructure:"badger_path" yaml:"badger_path,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// TelemetryConfig configures OpenTelemetry tracing and Pyroscope profiling.
// cmd/vaultd reads only the tracing fields; the profiling fields have no
// effect.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	ProfilingEnabled  bool   `mapstructure:"profiling_enabled" yaml:"profiling_enabled"`
	ProfilingEndpoint string `mapstructure:"profiling_endpoint" yaml:"profiling_endpoint"`
}

// AdminAPIConfig configures the control-plane HTTP API (internal/controlapi).
type AdminAPIConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Port      int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret,omitempty"`
}

// Default returns the zero-config defaults: port 9000, 1 MiB chunks, an
// in-memory metadata store, and local filesystem storage under ./data.
func Default() *Config {
	return &Config{
		Port:                 9000,
		ChunkSize:            bytesize.MiB,
		MaxConcurrentClients: 100,
		SessionTimeout:       30 * time.Minute,
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		Storage: StorageConfig{
			Backend: "localfs",
			Root:    "./data/files",
		},
		Metadata: MetadataConfig{
			Backend: "memory",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Admin: AdminAPIConfig{
			Enabled: true,
			Port:    9001,
		},
	}
}

// Load starts from Default() and, when a config file is found (configPath,
// or the default search path if configPath is empty), overlays its values,
// with a VAULTD_*-prefixed environment variable taking precedence over the
// file for any key the file sets. Keys absent from the file, and every key
// when no file is found, are not read from the environment. It then
// validates the result. portFlag, if non-zero, overrides Port last (the
// CLI flag is the highest-precedence source per SPEC_FULL §4).
func Load(configPath string, portFlag int) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	cfg := Default()

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if found {
		if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHooks())); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	if portFlag != 0 {
		cfg.Port = portFlag
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// ResolvedConfigFile returns the actual config file path Load would read
// for configPath, resolving viper's search-path default when configPath is
// empty. Returns "" if no config file exists (Load then just applies
// defaults), in which case there is nothing for Watch to watch.
func ResolvedConfigFile(configPath string) string {
	v := viper.New()
	setupViper(v, configPath)
	if _, err := readConfigFile(v); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// Validate runs struct-tag validation via validator/v10.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// Save writes cfg as YAML to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("VAULTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(defaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read file: %w", err)
	}
	return true, nil
}

func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vaultd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "vaultd")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}
