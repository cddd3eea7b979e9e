// Package config provides Viper-based configuration loading for the ruleset tools.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/modstack/internal/ruleset/namespace"
	"github.com/cory-johannsen/modstack/internal/ruleset/ruleerr"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "MODSTACK"

// DatabaseConfig holds PostgreSQL connection settings for the mod state store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout", or a file path.
	Output string `mapstructure:"output"`
}

// Mod state store backends.
const (
	StateStoreMemory   = "memory"
	StateStorePostgres = "postgres"
)

// ModsConfig selects the mods to load.
type ModsConfig struct {
	// DataDir holds one subdirectory per mod.
	DataDir string `mapstructure:"data_dir"`
	// Active lists mod ids in load order; exactly one must be a master.
	Active []string `mapstructure:"active"`
	// StateStore is "memory" or "postgres".
	StateStore string `mapstructure:"state_store"`
}

// LoaderConfig tunes the load policy.
type LoaderConfig struct {
	// Debug aborts on the first failing mod instead of disabling it.
	Debug bool `mapstructure:"debug"`
	// ValidationThreshold is the soft error severity promoted to fatal:
	// "info", "warn", "error" or "none".
	ValidationThreshold string `mapstructure:"validation_threshold"`
	// MaxLinkErrors bounds the failures one link pass collects.
	MaxLinkErrors int `mapstructure:"max_link_errors"`
	// ScriptInstructionLimit bounds each validation script; 0 is unlimited.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// NamespaceConfig bounds the index range each mod may reserve.
type NamespaceConfig struct {
	UnitSize         int64 `mapstructure:"unit_size"`
	ReservedSpaceMin int   `mapstructure:"reserved_space_min"`
	ReservedSpaceMax int   `mapstructure:"reserved_space_max"`
}

// EngineConfig identifies the running engine for manifest gating.
type EngineConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mods      ModsConfig      `mapstructure:"mods"`
	Loader    LoaderConfig    `mapstructure:"loader"`
	Namespace NamespaceConfig `mapstructure:"namespace"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMods(c.Mods); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Mods.StateStore == StateStorePostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLoader(c.Loader); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateNamespace(c.Namespace); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Engine.Name == "" {
		errs = append(errs, "engine.name must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMods(m ModsConfig) error {
	var errs []string
	if m.DataDir == "" {
		errs = append(errs, "mods.data_dir must not be empty")
	}
	if len(m.Active) == 0 {
		errs = append(errs, "mods.active must name at least the master mod")
	}
	if m.StateStore != StateStoreMemory && m.StateStore != StateStorePostgres {
		errs = append(errs, fmt.Sprintf("mods.state_store must be one of [memory, postgres], got %q", m.StateStore))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLoader(l LoaderConfig) error {
	var errs []string
	if _, err := ruleerr.ParseSeverity(l.ValidationThreshold); err != nil {
		errs = append(errs, fmt.Sprintf("loader.validation_threshold must be one of [info, warn, error, none], got %q", l.ValidationThreshold))
	}
	if l.MaxLinkErrors < 1 || l.MaxLinkErrors > 1000 {
		errs = append(errs, fmt.Sprintf("loader.max_link_errors must be 1-1000, got %d", l.MaxLinkErrors))
	}
	if l.ScriptInstructionLimit < 0 {
		errs = append(errs, "loader.script_instruction_limit must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateNamespace(n NamespaceConfig) error {
	var errs []string
	if n.UnitSize < 1 {
		errs = append(errs, fmt.Sprintf("namespace.unit_size must be >= 1, got %d", n.UnitSize))
	}
	if n.ReservedSpaceMin < 1 {
		errs = append(errs, fmt.Sprintf("namespace.reserved_space_min must be >= 1, got %d", n.ReservedSpaceMin))
	}
	if n.ReservedSpaceMax < n.ReservedSpaceMin {
		errs = append(errs, "namespace.reserved_space_max must not be below namespace.reserved_space_min")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.Output == "" {
		return errors.New("logging.output must not be empty")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance carrying only the built-in defaults.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "modstack")
	v.SetDefault("database.password", "modstack")
	v.SetDefault("database.name", "modstack")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("mods.data_dir", "mods")
	v.SetDefault("mods.active", []string{"xcom1"})
	v.SetDefault("mods.state_store", StateStoreMemory)

	v.SetDefault("loader.debug", false)
	v.SetDefault("loader.validation_threshold", "error")
	v.SetDefault("loader.max_link_errors", 30)
	v.SetDefault("loader.script_instruction_limit", 100000)

	v.SetDefault("namespace.unit_size", namespace.DefaultUnitSize)
	v.SetDefault("namespace.reserved_space_min", namespace.DefaultReservedSpaceMin)
	v.SetDefault("namespace.reserved_space_max", namespace.DefaultReservedSpaceMax)

	v.SetDefault("engine.name", "Extended")
	v.SetDefault("engine.version", "8.0")
}
