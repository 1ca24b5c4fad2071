// Package config loads leadflow settings from ~/.leadflow/config.yaml, a .env
// file and LEADFLOW_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// Dirname is the per-user settings directory under $HOME.
	Dirname  = ".leadflow"
	filename = "config.yaml"

	DedupStore  = "store"
	DedupMemory = "memory"
)

const defaultConfigYAML = `# leadflow configuration

database:
  # sqlite or pgx
  driver: sqlite
  # file path for sqlite, connection URL for pgx; empty uses ~/.leadflow/leadflow.db
  dsn: ""

# user id whose reminders watch/tui alert on
user: ""

server:
  addr: ":8080"

notifications:
  reminder_interval: 30s
  badge_interval: 60s
  dedup_window: 60s
  # store keeps alert times in the database, memory keeps them per process
  dedup: store

documents:
  # YAML requirement catalog; empty reads requirements from the database
  catalog: ""

users:
  cache_ttl: 5m

log:
  # empty logs to stderr
  file: ""
`

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type NotificationConfig struct {
	ReminderInterval time.Duration `yaml:"reminder_interval"`
	BadgeInterval    time.Duration `yaml:"badge_interval"`
	DedupWindow      time.Duration `yaml:"dedup_window"`
	Dedup            string        `yaml:"dedup"`
}

type DocumentConfig struct {
	Catalog string `yaml:"catalog"`
}

type UserConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type LogConfig struct {
	File string `yaml:"file"`
}

// Config is the full leadflow configuration.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	User          string             `yaml:"user"`
	Server        ServerConfig       `yaml:"server"`
	Notifications NotificationConfig `yaml:"notifications"`
	Documents     DocumentConfig     `yaml:"documents"`
	Users         UserConfig         `yaml:"users"`
	Log           LogConfig          `yaml:"log"`

	// Path is the file the config was read from, if any.
	Path string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite"},
		Server:   ServerConfig{Addr: ":8080"},
		Notifications: NotificationConfig{
			ReminderInterval: 30 * time.Second,
			BadgeInterval:    60 * time.Second,
			DedupWindow:      60 * time.Second,
			Dedup:            DedupStore,
		},
		Users: UserConfig{CacheTTL: 5 * time.Minute},
	}
}

// Dir returns the settings directory: $LEADFLOW_HOME, else ~/.leadflow.
func Dir() (string, error) {
	if dir := os.Getenv("LEADFLOW_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, Dirname), nil
}

// Path returns the config file location: $LEADFLOW_CONFIG, else config.yaml
// inside Dir.
func Path() (string, error) {
	if p := os.Getenv("LEADFLOW_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// Load reads .env files, the config file (a missing file is not an error) and
// environment overrides.
func Load() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()
	if dir, err := Dir(); err == nil {
		_ = godotenv.Load(filepath.Join(dir, ".env"))
	}

	path, err := Path()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path over the defaults. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// WriteDefault writes the commented default config to path unless a file is
// already there. It reports whether it wrote.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("LEADFLOW_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("LEADFLOW_DB", c.Database.DSN)
	c.User = getEnv("LEADFLOW_USER", c.User)
	c.Server.Addr = getEnv("LEADFLOW_ADDR", c.Server.Addr)
	c.Documents.Catalog = getEnv("LEADFLOW_CATALOG", c.Documents.Catalog)
	c.Log.File = getEnv("LEADFLOW_LOG", c.Log.File)
	c.Notifications.ReminderInterval = getEnvDuration("LEADFLOW_REMINDER_INTERVAL", c.Notifications.ReminderInterval)
	c.Notifications.BadgeInterval = getEnvDuration("LEADFLOW_BADGE_INTERVAL", c.Notifications.BadgeInterval)
	if port := getEnvInt("PORT", 0); port > 0 && os.Getenv("LEADFLOW_ADDR") == "" {
		c.Server.Addr = ":" + strconv.Itoa(port)
	}
}

// Validate rejects settings the rest of leadflow cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("invalid database driver: %q (must be sqlite or pgx)", c.Database.Driver)
	}
	if c.Database.Driver == "pgx" && c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for the pgx driver")
	}
	if c.Notifications.ReminderInterval <= 0 || c.Notifications.BadgeInterval <= 0 {
		return fmt.Errorf("notification intervals must be positive")
	}
	if c.Notifications.DedupWindow < 0 {
		return fmt.Errorf("dedup window must not be negative")
	}
	switch c.Notifications.Dedup {
	case DedupStore, DedupMemory:
	default:
		return fmt.Errorf("invalid dedup store: %q (must be store or memory)", c.Notifications.Dedup)
	}
	return nil
}

// DatabaseDSN is the configured DSN, or the default sqlite path inside Dir.
func (c *Config) DatabaseDSN() (string, error) {
	if c.Database.DSN != "" {
		return c.Database.DSN, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "leadflow.db"), nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
