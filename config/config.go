// Package config loads servreg host configuration and binds the lifecycle
// option sections from files and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/junioryono/servreg"
)

// EnvPrefix prefixes environment overrides, e.g. SERVREG_LOGGING_LEVEL=DEBUG.
const EnvPrefix = "SERVREG"

var validate = validator.New()

// Config is the host configuration.
type Config struct {
	// Logging configures the slog handler.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// ShutdownTimeout bounds the orchestrator Stop call.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Tracing configures lifecycle spans.
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`

	// Registration selects the roles registration processes.
	Registration servreg.RegistrationOptions `mapstructure:"ServiceRegistrationOptions" yaml:"ServiceRegistrationOptions"`

	// Setup controls the startup phase.
	Setup servreg.SetupOptions `mapstructure:"AsyncSetupServicesOptions" yaml:"AsyncSetupServicesOptions"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port the endpoint listens on.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// Path the registry is served at.
	Path string `mapstructure:"path" validate:"required,startswith=/" yaml:"path"`
}

// TracingConfig configures lifecycle spans. Spans are exported to an OTLP
// collector when Endpoint is set and written to the log at debug level
// otherwise.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address, e.g. "localhost:4317".
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,hostname_port" yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the fraction of traces recorded, from 0 to 1.
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1" yaml:"sample_rate"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		ShutdownTimeout: 30 * time.Second,
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Tracing: TracingConfig{
			SampleRate: 1,
		},
		Setup: servreg.DefaultSetupOptions(),
	}
}

// Source is a configuration source: an optional file overlaid by environment
// variables and defaults.
//
// Precedence (highest to lowest):
//  1. Environment variables (SERVREG_*)
//  2. Configuration file
//  3. Default values
type Source struct {
	v    *viper.Viper
	file string
}

// Open reads path, or no file when path is empty. A missing file is not an
// error; every value then comes from the environment or the defaults.
func Open(path string) (*Source, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	src := &Source{v: v}
	if path == "" {
		return src, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return src, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return src, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	src.file = v.ConfigFileUsed()
	return src, nil
}

// File returns the configuration file that was read, if any.
func (s *Source) File() string {
	return s.file
}

// Config decodes, normalizes and validates the whole configuration.
func (s *Source) Config() (*Config, error) {
	var cfg Config
	if err := s.v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Load opens path and returns its configuration.
func Load(path string) (*Config, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	return src.Config()
}

// Validate checks cfg field constraints and the setup order.
func Validate(cfg *Config) error {
	if err := cfg.Setup.Validate(); err != nil {
		return err
	}
	return validate.Struct(cfg)
}

// Save writes cfg as YAML to path, creating its directory.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults registers every key of cfg so environment overrides apply
// even when the file omits the key.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
	v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("tracing.sample_rate", cfg.Tracing.SampleRate)
	v.SetDefault("tracing.endpoint", cfg.Tracing.Endpoint)
	v.SetDefault("tracing.insecure", cfg.Tracing.Insecure)

	reg := servreg.RegistrationOptionsSection + "."
	v.SetDefault(reg+"registerAsyncSetupWithResolverServices", cfg.Registration.RegisterAsyncSetupWithResolverServices)
	v.SetDefault(reg+"registerLifetimeHostedServices", cfg.Registration.RegisterLifetimeHostedServices)
	v.SetDefault(reg+"registerAsyncSetupServices", cfg.Registration.RegisterAsyncSetupServices)
	v.SetDefault(reg+"registerSingletonServices", cfg.Registration.RegisterSingletonServices)
	v.SetDefault(reg+"registerTransientServices", cfg.Registration.RegisterTransientServices)
	v.SetDefault(reg+"registerScopedServices", cfg.Registration.RegisterScopedServices)

	setup := servreg.SetupOptionsSection + "."
	v.SetDefault(setup+"executeResolverAwareSetupsFirst", cfg.Setup.ExecuteResolverAwareSetupsFirst)
	v.SetDefault(setup+"executePlainSetupsFirst", cfg.Setup.ExecutePlainSetupsFirst)
	v.SetDefault(setup+"fireAndForgetSetups", cfg.Setup.FireAndForgetSetups)
	v.SetDefault(setup+"triggersSetupOnStartup", cfg.Setup.TriggersSetupOnStartup)
}
