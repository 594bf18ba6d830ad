package config

import (
	"path/filepath"
	"time"

	"csfloat-watch/pkg/logger"
)

// Config holds the application configuration.
type Config struct {
	// Configurable via JSON file (private fields to enforce immutability)
	apiKey        string
	dataDir       string
	notifyCommand string
	alertSound    string
	pollInterval  time.Duration
	alertInterval time.Duration

	// Internal fields
	log *logger.Logger
}

// New creates a new Config instance with the provided logger.
func New(log *logger.Logger) *Config {
	return &Config{
		log: log,
	}
}

// GetAPIKey returns the CSFloat API key.
func (c *Config) GetAPIKey() string {
	return c.apiKey
}

// GetDataDir returns the directory holding the registry, history database and
// observation logs.
func (c *Config) GetDataDir() string {
	return c.dataDir
}

// GetNotifyCommand returns the user-configured notification command, if any.
func (c *Config) GetNotifyCommand() string {
	return c.notifyCommand
}

// GetAlertSound returns the path of the alert cue WAV file, if configured.
func (c *Config) GetAlertSound() string {
	return c.alertSound
}

// GetPollInterval returns the price-evolution cycle period.
func (c *Config) GetPollInterval() time.Duration {
	return c.pollInterval
}

// GetAlertInterval returns the alert-check cycle period.
func (c *Config) GetAlertInterval() time.Duration {
	return c.alertInterval
}

// GetRegistryPath returns the tracked items file inside the data dir.
func (c *Config) GetRegistryPath() string {
	return filepath.Join(c.dataDir, "tracked_items.json")
}

// GetTrackedLogsDir returns the directory for per-item observation logs.
func (c *Config) GetTrackedLogsDir() string {
	return filepath.Join(c.dataDir, "tracked_logs")
}
