package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultFile            = "journaldb.yml"
	DefaultBackupRetention = 5
	DefaultBusyTimeout     = 5 * time.Second
	DefaultJournalMode     = "WAL"
	DefaultLogLevel        = "info"
	DefaultFormat          = "text"
)

// EnvPrefix prefixes every environment variable read by MergeEnv.
const EnvPrefix = "JOURNALDB_"

// AppDir is the application directory under the XDG data home.
const AppDir = "trading-journal"

// ErrInvalidConfig is wrapped by Validate errors.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabasePath    string
	BackupDir       string // empty means "backups" next to the database
	BackupRetention int
	BusyTimeout     time.Duration
	JournalMode     string
	LogLevel        string
	Format          string
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BackupDir       string `yaml:"backup_dir"`
	BackupRetention int    `yaml:"backup_retention"`
	BusyTimeout     string `yaml:"busy_timeout"`
	JournalMode     string `yaml:"journal_mode"`
	LogLevel        string `yaml:"log_level"`
	Format          string `yaml:"format"`
}

// DefaultDatabasePath is the journal database under the XDG data home.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, AppDir, "trading_journal.db")
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		DatabasePath:    DefaultDatabasePath(),
		BackupRetention: DefaultBackupRetention,
		BusyTimeout:     DefaultBusyTimeout,
		JournalMode:     DefaultJournalMode,
		LogLevel:        DefaultLogLevel,
		Format:          DefaultFormat,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	if raw.DatabasePath != "" {
		cfg.DatabasePath = raw.DatabasePath
	}

	if raw.BackupDir != "" {
		cfg.BackupDir = raw.BackupDir
	}

	if raw.BackupRetention != 0 {
		cfg.BackupRetention = raw.BackupRetention
	}

	if raw.BusyTimeout != "" {
		d, err := time.ParseDuration(raw.BusyTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing busy_timeout %q: %w", raw.BusyTimeout, err)
		}

		cfg.BusyTimeout = d
	}

	if raw.JournalMode != "" {
		cfg.JournalMode = raw.JournalMode
	}

	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}

	if raw.Format != "" {
		cfg.Format = raw.Format
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// MergeEnv overrides config fields from JOURNALDB_* environment variables.
// Malformed numbers and durations are ignored.
func MergeEnv(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}

	if v := os.Getenv(EnvPrefix + "BACKUP_DIR"); v != "" {
		cfg.BackupDir = v
	}

	if v := os.Getenv(EnvPrefix + "BACKUP_RETENTION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BackupRetention = n
		}
	}

	if v := os.Getenv(EnvPrefix + "BUSY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BusyTimeout = d
		}
	}

	if v := os.Getenv(EnvPrefix + "JOURNAL_MODE"); v != "" {
		cfg.JournalMode = v
	}

	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := os.Getenv(EnvPrefix + "FORMAT"); v != "" {
		cfg.Format = v
	}
}

var journalModes = map[string]bool{ //nolint:gochecknoglobals // lookup table
	"DELETE": true, "TRUNCATE": true, "PERSIST": true, "MEMORY": true, "WAL": true, "OFF": true,
}

// Validate checks field values that cannot be defaulted.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("%w: database_path is empty", ErrInvalidConfig)
	}

	if c.BackupRetention < 1 {
		return fmt.Errorf("%w: backup_retention must be at least 1, got %d", ErrInvalidConfig, c.BackupRetention)
	}

	if c.BusyTimeout < 0 {
		return fmt.Errorf("%w: busy_timeout must not be negative", ErrInvalidConfig)
	}

	if !journalModes[strings.ToUpper(c.JournalMode)] {
		return fmt.Errorf("%w: unknown journal_mode %q", ErrInvalidConfig, c.JournalMode)
	}

	if _, err := c.Level(); err != nil {
		return err
	}

	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("%w: format must be text or json, got %q", ErrInvalidConfig, c.Format)
	}

	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q: %w", ErrInvalidConfig, c.LogLevel, err)
	}

	return l, nil
}
