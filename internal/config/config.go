// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable override, e.g.
// SERIAL_LOOPBACK_PROBE_TIMEOUT=1s.
const EnvPrefix = "SERIAL_LOOPBACK"

// Config represents the application configuration
type Config struct {
	Probe   ProbeConfig   `mapstructure:"probe"`
	Ports   PortsConfig   `mapstructure:"ports"`
	Backend string        `mapstructure:"backend"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ProbeConfig controls the loopback exchange. The serial framing itself is
// fixed and deliberately not configurable.
type ProbeConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	Payload       string        `mapstructure:"payload"`
	ReadSize      int           `mapstructure:"read_size"`
	StrictWrite   bool          `mapstructure:"strict_write"`
	OnOpenFailure string        `mapstructure:"on_open_failure"`
}

// PortsConfig selects how ports are discovered
type PortsConfig struct {
	Source string `mapstructure:"source"`
	DevDir string `mapstructure:"dev_dir"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Port discovery sources
const (
	SourceSystem = "system"
	SourceDev    = "dev"
)

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	// Probe defaults
	v.SetDefault("probe.timeout", "500ms")
	v.SetDefault("probe.payload", "01234567")
	v.SetDefault("probe.read_size", 8)
	v.SetDefault("probe.strict_write", false)
	v.SetDefault("probe.on_open_failure", "skip")

	// Port discovery defaults
	v.SetDefault("ports.source", SourceSystem)
	v.SetDefault("ports.dev_dir", "/dev")

	v.SetDefault("backend", "auto")

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)
}

// BindEnv enables SERIAL_LOOPBACK_* environment overrides on v
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the optional config file named by cfgFile (or searched for in
// searchPaths as .serial-loopback.yaml), applies defaults and environment
// overrides, and validates the result. A missing config file is not an
// error; a malformed one is.
func Load(v *viper.Viper, cfgFile string, searchPaths ...string) (*Config, error) {
	SetDefaults(v)
	BindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".serial-loopback")
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return Decode(v)
}

// Decode unmarshals and validates the configuration already held by v
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive, got %s", config.Probe.Timeout)
	}
	if config.Probe.Payload == "" {
		return errors.New("probe.payload must not be empty")
	}
	if config.Probe.ReadSize <= 0 {
		return fmt.Errorf("probe.read_size must be positive, got %d", config.Probe.ReadSize)
	}

	validPolicies := []string{"skip", "abort"}
	if !slices.Contains(validPolicies, config.Probe.OnOpenFailure) {
		return fmt.Errorf("probe.on_open_failure must be one of: %v", validPolicies)
	}

	validSources := []string{SourceSystem, SourceDev}
	if !slices.Contains(validSources, config.Ports.Source) {
		return fmt.Errorf("ports.source must be one of: %v", validSources)
	}

	validBackends := []string{"auto", "native", "bugst"}
	if !slices.Contains(validBackends, config.Backend) {
		return fmt.Errorf("backend must be one of: %v", validBackends)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	validFormats := []string{"json", "console"}
	if !slices.Contains(validFormats, config.Logging.Format) {
		return fmt.Errorf("logging.format must be one of: %v", validFormats)
	}

	return nil
}
