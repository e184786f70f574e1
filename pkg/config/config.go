package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the supervisor engine's static configuration:
//   - Logging and telemetry behavior
//   - The transport listener the engine accepts controller connections on
//   - Engine-level limits (step timeout, queue depth)
//   - The Prometheus metrics server
//   - The journal (step-frame recorder/replay) backing store
//   - The artifact uploader used for exported images and saved worlds
//   - JWT supervisor-token minting
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (SUPERVISOR_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Connection configures the simulator TCP endpoint supervisorctl dials
	Connection ConnectionConfig `mapstructure:"connection" yaml:"connection"`

	// Engine configures step-level limits of the supervisor engine
	Engine EngineConfig `mapstructure:"engine" yaml:"engine"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Journal configures the Badger-backed step-frame recorder
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`

	// Artifact configures the S3 uploader for exported images and saved
	// worlds
	Artifact ArtifactConfig `mapstructure:"artifact" yaml:"artifact"`

	// Auth contains JWT supervisor-token settings
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`
}

// ConnectionConfig configures the simulator TCP endpoint supervisorctl's
// "serve" command dials out to as a controller.
type ConnectionConfig struct {
	// Host is the simulator's address to dial.
	// Default: "127.0.0.1"
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the simulator's supervisor TCP port to dial.
	// Default: 10020 (the simulator's conventional supervisor port)
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// HandshakeTimeout bounds how long the initial supervisor-identity
	// handshake with the simulator may take before the dial is abandoned.
	// Default: 10s
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
}

// EngineConfig configures step-level behavior of the supervisor engine.
type EngineConfig struct {
	// FlushTimeout bounds how long a single Engine.Flush may block waiting
	// for the simulator's reply before the step is abandoned.
	// Default: 30s
	FlushTimeout time.Duration `mapstructure:"flush_timeout" yaml:"flush_timeout"`

	// MaxQueuedRequests is loaded, defaulted and validated, but nothing
	// passes it to the engine: the operations queue does not cap pending
	// SET/IMPORT/REMOVE requests.
	// Default: 4096
	MaxQueuedRequests int `mapstructure:"max_queued_requests" validate:"omitempty,gt=0" yaml:"max_queued_requests"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// JournalConfig configures the Badger-backed step-frame recorder.
// Every flushed step's outgoing frame and reply is appended to the
// journal keyed by step number, enabling offline replay and debugging.
type JournalConfig struct {
	// Enabled controls whether steps are journaled at all.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Path is the directory Badger stores its log-structured files in.
	// Example: /var/lib/supervisor/journal
	Path string `mapstructure:"path" validate:"required_if=Enabled true" yaml:"path"`

	// RetainSteps is passed to journal.Open as the number of most recent
	// steps journal.Prune keeps. serve does not call Prune, so recorded
	// steps are not removed.
	// Default: 10000
	RetainSteps int `mapstructure:"retain_steps" validate:"omitempty,gt=0" yaml:"retain_steps"`
}

// ArtifactConfig configures the S3 uploader used for exported images and
// saved worlds.
type ArtifactConfig struct {
	// Enabled controls whether artifacts are uploaded to S3 at all; when
	// false, exported files are left on the local filesystem only.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Bucket is the destination S3 bucket name.
	Bucket string `mapstructure:"bucket" validate:"required_if=Enabled true" yaml:"bucket"`

	// Region is the AWS region the bucket lives in.
	Region string `mapstructure:"region" yaml:"region"`

	// Prefix is prepended to every uploaded object's key.
	Prefix string `mapstructure:"prefix" yaml:"prefix,omitempty"`
}

// AuthConfig controls the JWT supervisor token serve mints at startup.
// The token is not sent to the simulator, and nothing verifies it before
// requests reach the engine.
type AuthConfig struct {
	// Enabled controls whether serve mints a signed token at startup.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// SigningSecret is the HMAC secret tokens are signed with.
	// Override: SUPERVISOR_AUTH_SIGNING_SECRET
	SigningSecret string `mapstructure:"signing_secret" validate:"required_if=Enabled true" yaml:"signing_secret,omitempty"`

	// Issuer is the "iss" claim written into minted tokens.
	Issuer string `mapstructure:"issuer" yaml:"issuer"`

	// TokenTTL is the validity window written into each minted token's
	// expiry claim.
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SUPERVISOR_*)
//  2. Configuration file
//  3. Default values
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages, checking
// whether a config file exists before attempting to load it.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  supervisorctl init\n\n"+
				"Or specify a custom config file:\n"+
				"  supervisorctl <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  supervisorctl init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Restricted permissions: the file may carry a JWT signing secret.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the SUPERVISOR_ prefix and underscores.
	// Example: SUPERVISOR_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("SUPERVISOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns the combined decode hook for custom types
// the config struct uses beyond viper's built-ins.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts
// strings and numbers to time.Duration, so config files can use
// human-readable durations like "30s", "5m", "1h".
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

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "supervisor")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "supervisor")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
