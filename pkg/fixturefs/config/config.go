package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/types"
	"github.com/jamesainslie/fixturefs/pkg/fixturefs/upload"
	"github.com/spf13/viper"
)

// StoreConfig configures the optional Badger fixture store.
type StoreConfig struct {
	// Path is the database directory. Empty disables the store.
	Path string `mapstructure:"path"`
}

// HistoryConfig configures run history.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// Config is the full application configuration.
type Config struct {
	TotalItems   int    `mapstructure:"total_items"`
	MinPerFolder int    `mapstructure:"min_per_folder"`
	Output       string `mapstructure:"output"`
	Format       string `mapstructure:"format"`
	Compression  string `mapstructure:"compression"`
	Summary      string `mapstructure:"summary"`

	// Seed seeds the random source. Zero picks one from the clock.
	Seed uint64 `mapstructure:"seed"`

	// Now fixes the generation time (RFC 3339). Empty uses the wall clock.
	Now string `mapstructure:"now"`

	PromoteProbability float64 `mapstructure:"promote_probability"`
	MaxActiveParents   int     `mapstructure:"max_active_parents"`
	MinFileSize        string  `mapstructure:"min_file_size"`
	MaxFileSize        string  `mapstructure:"max_file_size"`

	// Vocabulary is an optional YAML file merged over the built-in
	// vocabularies.
	Vocabulary string `mapstructure:"vocabulary"`

	Store   StoreConfig   `mapstructure:"store"`
	Upload  upload.Config `mapstructure:"upload"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SetDefaults registers every default on v and enables environment
// overrides with the FIXTUREFS_ prefix.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("total_items", DefaultTotalItems)
	v.SetDefault("min_per_folder", DefaultMinPerFolder)
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("compression", DefaultCompression)
	v.SetDefault("summary", DefaultSummary)
	v.SetDefault("seed", 0)
	v.SetDefault("now", "")
	v.SetDefault("promote_probability", DefaultPromoteProbability)
	v.SetDefault("max_active_parents", DefaultMaxActiveParents)
	v.SetDefault("min_file_size", DefaultMinFileSize)
	v.SetDefault("max_file_size", DefaultMaxFileSize)
	v.SetDefault("vocabulary", "")

	v.SetDefault("store.path", "")

	v.SetDefault("upload.endpoint", "")
	v.SetDefault("upload.access_key", "")
	v.SetDefault("upload.secret_key", "")
	v.SetDefault("upload.bucket", "")
	v.SetDefault("upload.object", "")
	v.SetDefault("upload.use_ssl", false)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", HistoryDir())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // empty means DefaultLogPath
}

// AddConfigPaths points v at config.yaml in the config directory.
func AddConfigPaths(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	v.AddConfigPath(dir)
	return nil
}

// ReadConfig reads the config file into v. A missing file is not an error.
func ReadConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Load reads configuration from the config file and environment.
//
// The config file is $XDG_CONFIG_HOME/fixturefs/config.yaml, falling back
// to $HOME/.config/fixturefs/config.yaml. Environment variables are prefixed
// with FIXTUREFS_ (e.g. FIXTUREFS_TOTAL_ITEMS, FIXTUREFS_UPLOAD_BUCKET).
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	if err := AddConfigPaths(v); err != nil {
		return nil, err
	}
	if err := ReadConfig(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Output, &cfg.Vocabulary, &cfg.Store.Path, &cfg.History.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be validated by the consumers alone.
func (c *Config) Validate() error {
	minSize, maxSize, err := c.FileSizeRange()
	if err != nil {
		return err
	}
	if minSize < types.KiB {
		return fmt.Errorf("min_file_size must be at least %s, got %s",
			types.FormatSize(types.KiB), c.MinFileSize)
	}
	if maxSize < minSize {
		return fmt.Errorf("invalid file size range: %s to %s", c.MinFileSize, c.MaxFileSize)
	}
	if _, err := c.NowTime(); err != nil {
		return err
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history retention must not be negative, got %d", c.History.RetentionDays)
	}
	return nil
}

// FileSizeRange parses the configured file size bounds.
func (c *Config) FileSizeRange() (minSize, maxSize int64, err error) {
	minSize, err = types.ParseSize(c.MinFileSize)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid min_file_size %q: %w", c.MinFileSize, err)
	}
	maxSize, err = types.ParseSize(c.MaxFileSize)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid max_file_size %q: %w", c.MaxFileSize, err)
	}
	return minSize, maxSize, nil
}

// NowTime parses the fixed generation time. The zero time means "use the
// wall clock".
func (c *Config) NowTime() (time.Time, error) {
	if c.Now == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.Now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid now %q: %w", c.Now, err)
	}
	return t.UTC(), nil
}

// LogPath returns the configured log path or the default.
func (c *Config) LogPath() string {
	if c.Logging.Path != "" {
		return c.Logging.Path
	}
	return DefaultLogPath()
}

// ConfigDir returns the configuration directory.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName), nil
}

// ConfigFile returns the path of config.yaml in ConfigDir.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/fixturefs.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

// StateDir returns $XDG_STATE_HOME/fixturefs.
func StateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

// HistoryDir returns the default run history directory.
func HistoryDir() string {
	return filepath.Join(DataDir(), "history")
}

// DefaultStorePath returns a suggested fixture store location.
func DefaultStorePath() string {
	return filepath.Join(DataDir(), "store")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), appName+".log")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// WriteDefault writes a commented default config file unless one exists.
// It returns the path and whether a file was written.
func WriteDefault() (string, bool, error) {
	path, err := ConfigFile()
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# fixturefs configuration

# Target number of items (folders and files) to emit
total_items: %d

# Files placed in every folder before the rest is spread at random
min_per_folder: %d

# Output path; "-" writes to stdout
output: %s

# Record format: ndjson or yaml
format: %s

# Compression: auto (from the output suffix), none, gzip, zstd, xz
compression: %s

# Summary printed after generation: pretty, plain or json
summary: %s

# Random seed; 0 picks one from the clock
seed: 0

# Fixed generation time (RFC 3339); empty uses the wall clock
now: ""

promote_probability: %g
max_active_parents: %d
min_file_size: %s
max_file_size: %s

# Optional YAML file overriding the built-in vocabularies
vocabulary: ""

# Badger fixture store; empty disables it
store:
  path: ""

# S3-compatible upload of the finished output; empty endpoint disables it
upload:
  endpoint: ""
  access_key: ""
  secret_key: ""
  bucket: ""
  object: ""
  use_ssl: false

# Run history
history:
  enabled: true
  path: %s
  retention_days: %d

logging:
  # Log level: debug, info, warn, error
  level: %s
  # Log file path (empty means $XDG_STATE_HOME/fixturefs/fixturefs.log)
  path: ""
`, DefaultTotalItems, DefaultMinPerFolder, DefaultOutput, DefaultFormat, DefaultCompression,
		DefaultSummary, DefaultPromoteProbability, DefaultMaxActiveParents, DefaultMinFileSize,
		DefaultMaxFileSize, HistoryDir(), DefaultRetentionDays, DefaultLogLevel)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write default config: %w", err)
	}
	return path, true, nil
}
