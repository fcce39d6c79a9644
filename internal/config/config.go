// Package config loads runledger settings and the built-in dungeon catalog.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/runledger/internal/analyzer"
	"github.com/theirongolddev/runledger/internal/source"
)

const appName = "runledger"

// Config holds all runledger configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Analysis   AnalysisConfig   `toml:"analysis"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir  string `toml:"data_dir,omitempty"`
	LogLevel string `toml:"log_level"`
	Timezone string `toml:"timezone,omitempty"`
}

// AnalysisConfig tunes the batch driver and purchase classification.
type AnalysisConfig struct {
	BatchSize         int      `toml:"batch_size"`
	MaxFileMB         int      `toml:"max_file_mb"`
	Workers           int      `toml:"workers"`
	ScatteredKeywords []string `toml:"scattered_keywords,omitempty"`
	IronKeywords      []string `toml:"iron_keywords,omitempty"`
}

// DaemonConfig holds background watcher settings.
type DaemonConfig struct {
	Addr     string `toml:"addr"`
	Interval string `toml:"interval"`
	Watch    bool   `toml:"watch"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Analysis: AnalysisConfig{
			BatchSize: source.DefaultBatchSize,
			MaxFileMB: 100,
			Workers:   4,
		},
		Daemon: DaemonConfig{
			Addr:     "127.0.0.1:8797",
			Interval: "2m",
			Watch:    true,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns where the store and daemon files live.
func DataDir(cfg Config) string {
	if cfg.General.DataDir != "" {
		return cfg.General.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}

// DBPath returns the application database path. RUNLEDGER_DB wins over
// the config.
func DBPath(cfg Config) string {
	if p := os.Getenv("RUNLEDGER_DB"); p != "" {
		return p
	}
	return filepath.Join(DataDir(cfg), appName+".db")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path over the defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-chosen config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes cfg to path.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-chosen config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Analysis.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("analysis.batch_size must be positive, got %d", c.Analysis.BatchSize))
	}
	if c.Analysis.MaxFileMB <= 0 {
		errs = append(errs, fmt.Errorf("analysis.max_file_mb must be positive, got %d", c.Analysis.MaxFileMB))
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must not be negative, got %d", c.Analysis.Workers))
	}
	if _, err := c.PollInterval(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LogLevel parses general.log_level.
func (c Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.General.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.General.LogLevel)); err != nil {
		return lvl, fmt.Errorf("general.log_level: %w", err)
	}
	return lvl, nil
}

// Location is the zone run times are rendered in.
func (c Config) Location() (*time.Location, error) {
	if c.General.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.General.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("general.timezone: %w", err)
	}
	return loc, nil
}

// PollInterval parses daemon.interval.
func (c Config) PollInterval() (time.Duration, error) {
	if c.Daemon.Interval == "" {
		return 2 * time.Minute, nil
	}
	d, err := time.ParseDuration(c.Daemon.Interval)
	if err != nil {
		return 0, fmt.Errorf("daemon.interval: %w", err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("daemon.interval must be at least 1s, got %s", d)
	}
	return d, nil
}

// MaxFileBytes is the per-file size ceiling.
func (a AnalysisConfig) MaxFileBytes() int64 {
	return int64(a.MaxFileMB) << 20
}

// Keywords returns the purchase keywords, falling back to the built-ins
// for an empty list.
func (a AnalysisConfig) Keywords() analyzer.Keywords {
	kw := analyzer.DefaultKeywords()
	if len(a.ScatteredKeywords) > 0 {
		kw.Scattered = a.ScatteredKeywords
	}
	if len(a.IronKeywords) > 0 {
		kw.Iron = a.IronKeywords
	}
	return kw
}
