// Package config loads the bridge configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// exportStartLayout is the layout for the configured export start date.
const exportStartLayout = "2006-01-02"

// OpenDental holds the settings for the OpenDental REST API and the
// on-disk image store.
type OpenDental struct {
	APIBaseURL     string `mapstructure:"api_base_url"`
	AuthScheme     string `mapstructure:"auth_scheme"`
	AuthToken      string `mapstructure:"auth_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	ImagePath      string `mapstructure:"image_path"`
}

// Config is the full bridge configuration.
type Config struct {
	// Provider selects the PMS backend: opendental, dentrix, eaglesoft.
	Provider string `mapstructure:"provider"`

	// DataDir holds the sqlite database and log files.
	DataDir string `mapstructure:"data_dir"`

	// ReportsDir is the inbox watched for incoming report PDFs.
	ReportsDir string `mapstructure:"reports_dir"`

	SyncIntervalMinutes   int    `mapstructure:"sync_interval_minutes"`
	StartupDelaySeconds   int    `mapstructure:"startup_delay_seconds"`
	RescanIntervalSeconds int    `mapstructure:"rescan_interval_seconds"`
	ExportStartDate       string `mapstructure:"export_start_date"`

	OpenDental OpenDental `mapstructure:"opendental"`
}

// Load reads configuration from the given file (or the default search
// path when file is empty), applies defaults and env overrides, and
// validates the result.
//
// Environment variables use the PMSBRIDGE_ prefix with underscores,
// e.g. PMSBRIDGE_OPENDENTAL_AUTH_TOKEN.
func Load(file string) (*Config, error) {
	v := viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("pmsbridge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pmsbridge")
	}

	v.SetEnvPrefix("PMSBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider", "opendental")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("sync_interval_minutes", 60)
	v.SetDefault("startup_delay_seconds", 10)
	v.SetDefault("rescan_interval_seconds", 30)
	v.SetDefault("export_start_date", "2024-01-01")
	v.SetDefault("opendental.api_base_url", "http://localhost:30222")
	v.SetDefault("opendental.auth_scheme", "ODFHIR")
	v.SetDefault("opendental.timeout_seconds", 30)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; defaults plus env must then carry
		// the required settings.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && file != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and value formats.
func (c *Config) Validate() error {
	if c.ReportsDir == "" {
		return fmt.Errorf("reports_dir is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if _, err := time.Parse(exportStartLayout, c.ExportStartDate); err != nil {
		return fmt.Errorf("export_start_date must be YYYY-MM-DD: %w", err)
	}
	if c.Provider == "opendental" && c.OpenDental.ImagePath == "" {
		return fmt.Errorf("opendental.image_path is required for the opendental provider")
	}
	return nil
}

// DatabasePath returns the sqlite database location under DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "pmsbridge.db")
}

// LogPath returns the rotating log file location under DataDir.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "pmsbridge.log")
}

// SyncInterval is the pause between sync engine cycles.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMinutes) * time.Minute
}

// StartupDelay is the pause before the first sync cycle.
func (c *Config) StartupDelay() time.Duration {
	return time.Duration(c.StartupDelaySeconds) * time.Second
}

// RescanInterval is the pause between inbox re-scans for missed files.
func (c *Config) RescanInterval() time.Duration {
	return time.Duration(c.RescanIntervalSeconds) * time.Second
}

// ExportStart is the fallback sync cursor used before the first
// successful cycle persists one.
func (c *Config) ExportStart() time.Time {
	t, _ := time.Parse(exportStartLayout, c.ExportStartDate)
	return t
}

// APITimeout is the HTTP client timeout for PMS API calls.
func (c *OpenDental) APITimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
