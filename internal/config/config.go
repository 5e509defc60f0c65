// Package config provides configuration management for markerdeck.
// Configuration is loaded from an optional config file and MARKERDECK_*
// environment variables, with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// Default values
	DefaultPort      = 3030
	DefaultHost      = "0.0.0.0"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "auto"
	DefaultDataDir   = ".markerdeck"
	DefaultDBDriver  = "sqlite"

	// Environment variable prefix; keys map as db.driver -> MARKERDECK_DB_DRIVER
	EnvPrefix = "MARKERDECK"

	// Database filename
	DBFilename = "markerdeck.db"

	// Editor defaults
	DefaultRefetchDelay      = 1500 * time.Millisecond
	DefaultSessionTTL        = 30 * time.Minute
	DefaultRequirePrimaryTag = true

	// Upstream defaults
	DefaultStashServer  = "http://localhost:9999"
	DefaultStashTimeout = 30 * time.Second

	// Job runner defaults
	DefaultJobPollInterval = 5 * time.Second
)

const (
	keyPort              = "port"
	keyHost              = "host"
	keyLogLevel          = "log.level"
	keyLogFormat         = "log.format"
	keyDataDir           = "data_dir"
	keyDBDriver          = "db.driver"
	keyDBDSN             = "db.dsn"
	keyStashServer       = "stash.server"
	keyStashAPIKey       = "stash.api_key"
	keyStashTimeout      = "stash.timeout"
	keyRefetchDelay      = "editor.refetch_delay"
	keySessionTTL        = "editor.session_ttl"
	keyRequirePrimaryTag = "editor.require_primary_tag"
	keyAllowedOrigins    = "cors.allowed_origins"
	keyJobPollInterval   = "jobs.poll_interval"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	Host() string
	LogLevel() string
	LogFormat() string
	DataDir() string
	DBDriver() string
	DBPath() string
	DBDSN() string
	CacheDir() string
	LockPath() string
	StashServer() string
	StashAPIKey() string
	StashTimeout() time.Duration
	RefetchDelay() time.Duration
	SessionTTL() time.Duration
	RequirePrimaryTag() bool
	AllowedOrigins() []string
	JobPollInterval() time.Duration
}

// ViperConfig reads configuration through a private viper instance
type ViperConfig struct {
	v *viper.Viper
}

// New creates a ViperConfig with defaults, an optional config file and
// environment variable overrides. An empty configFile skips file loading.
func New(configFile string) (*ViperConfig, error) {
	v := viper.New()

	v.SetDefault(keyPort, DefaultPort)
	v.SetDefault(keyHost, DefaultHost)
	v.SetDefault(keyLogLevel, DefaultLogLevel)
	v.SetDefault(keyLogFormat, DefaultLogFormat)
	v.SetDefault(keyDataDir, defaultDataDir())
	v.SetDefault(keyDBDriver, DefaultDBDriver)
	v.SetDefault(keyDBDSN, "")
	v.SetDefault(keyStashServer, DefaultStashServer)
	v.SetDefault(keyStashAPIKey, "")
	v.SetDefault(keyStashTimeout, DefaultStashTimeout)
	v.SetDefault(keyRefetchDelay, DefaultRefetchDelay)
	v.SetDefault(keySessionTTL, DefaultSessionTTL)
	v.SetDefault(keyRequirePrimaryTag, DefaultRequirePrimaryTag)
	v.SetDefault(keyAllowedOrigins, []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault(keyJobPollInterval, DefaultJobPollInterval)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &ViperConfig{v: v}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ViperConfig) validate() error {
	port := c.v.GetInt(keyPort)
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid %s: port must be between 1 and 65535", keyPort)
	}

	switch c.DBDriver() {
	case "sqlite":
	case "postgres":
		if c.DBDSN() == "" {
			return fmt.Errorf("invalid %s: postgres requires %s", keyDBDriver, keyDBDSN)
		}
	default:
		return fmt.Errorf("invalid %s: unsupported driver %q", keyDBDriver, c.DBDriver())
	}

	if c.RefetchDelay() < 0 {
		return fmt.Errorf("invalid %s: must not be negative", keyRefetchDelay)
	}
	if c.SessionTTL() <= 0 {
		return fmt.Errorf("invalid %s: must be positive", keySessionTTL)
	}
	return nil
}

// Port returns the HTTP server port
func (c *ViperConfig) Port() int {
	return c.v.GetInt(keyPort)
}

// Host returns the HTTP listen host
func (c *ViperConfig) Host() string {
	return c.v.GetString(keyHost)
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *ViperConfig) LogLevel() string {
	return c.v.GetString(keyLogLevel)
}

// LogFormat returns the log format (json, text, auto)
func (c *ViperConfig) LogFormat() string {
	return c.v.GetString(keyLogFormat)
}

// DataDir returns the data directory path
func (c *ViperConfig) DataDir() string {
	return c.v.GetString(keyDataDir)
}

func (c *ViperConfig) DBDriver() string {
	return strings.ToLower(c.v.GetString(keyDBDriver))
}

// DBPath returns the full path to the SQLite database file
func (c *ViperConfig) DBPath() string {
	return filepath.Join(c.DataDir(), DBFilename)
}

// DBDSN returns the Postgres connection string
func (c *ViperConfig) DBDSN() string {
	return c.v.GetString(keyDBDSN)
}

// CacheDir returns the cache directory path
func (c *ViperConfig) CacheDir() string {
	return filepath.Join(c.DataDir(), "cache")
}

// LockPath returns the instance lock file path
func (c *ViperConfig) LockPath() string {
	return filepath.Join(c.DataDir(), "markerdeck.lock")
}

// StashServer returns the fallback upstream base URL, used until the
// STASH_SERVER setting is stored.
func (c *ViperConfig) StashServer() string {
	return strings.TrimRight(c.v.GetString(keyStashServer), "/")
}

func (c *ViperConfig) StashAPIKey() string {
	return c.v.GetString(keyStashAPIKey)
}

func (c *ViperConfig) StashTimeout() time.Duration {
	return c.v.GetDuration(keyStashTimeout)
}

func (c *ViperConfig) RefetchDelay() time.Duration {
	return c.v.GetDuration(keyRefetchDelay)
}

func (c *ViperConfig) SessionTTL() time.Duration {
	return c.v.GetDuration(keySessionTTL)
}

func (c *ViperConfig) RequirePrimaryTag() bool {
	return c.v.GetBool(keyRequirePrimaryTag)
}

// AllowedOrigins returns the CORS origin allowlist. Env values are comma separated.
func (c *ViperConfig) AllowedOrigins() []string {
	raw := c.v.GetStringSlice(keyAllowedOrigins)
	var out []string
	for _, item := range raw {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

func (c *ViperConfig) JobPollInterval() time.Duration {
	return c.v.GetDuration(keyJobPollInterval)
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
