package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// BlobRoot is the directory blobs (todo images) are stored under.
	BlobRoot string `mapstructure:"blob_root" yaml:"blob_root"`

	// PublicBaseURL prefixes stored blob paths to form public URLs.
	PublicBaseURL string `mapstructure:"public_base_url" yaml:"public_base_url"`
}

// SharingConfig holds cooperative-table settings.
type SharingConfig struct {
	// InviteTTLHours is how long an invitation stays pending before it
	// reads as expired.
	InviteTTLHours int `mapstructure:"invite_ttl_hours" yaml:"invite_ttl_hours"`
}

// NotifyConfig holds reminder poller settings.
type NotifyConfig struct {
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Sharing SharingConfig `mapstructure:"sharing" yaml:"sharing"`
	Notify  NotifyConfig  `mapstructure:"notify" yaml:"notify"`
}

// InviteTTL returns the invitation validity window as a duration.
func (c *AppConfig) InviteTTL() time.Duration {
	return time.Duration(c.Sharing.InviteTTLHours) * time.Hour
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/daylist/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "daylist", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".local", "share", "daylist")
	return &AppConfig{
		Storage: StorageConfig{
			DBPath:        filepath.Join(dataDir, "daylist.db"),
			BlobRoot:      filepath.Join(dataDir, "images"),
			PublicBaseURL: "",
		},
		Sharing: SharingConfig{InviteTTLHours: 72},
		Notify:  NotifyConfig{PollIntervalSec: 300},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultAppConfig()
	v.SetDefault("storage.db_path", defaults.Storage.DBPath)
	v.SetDefault("storage.blob_root", defaults.Storage.BlobRoot)
	v.SetDefault("storage.public_base_url", defaults.Storage.PublicBaseURL)
	v.SetDefault("sharing.invite_ttl_hours", defaults.Sharing.InviteTTLHours)
	v.SetDefault("notify.poll_interval_sec", defaults.Notify.PollIntervalSec)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
