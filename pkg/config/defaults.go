package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"csfloat-watch/pkg/logger"
)

const (
	// DefaultPollInterval is the price-evolution cycle period.
	DefaultPollInterval = 60 * time.Second

	// DefaultAlertInterval is the alert-check cycle period.
	DefaultAlertInterval = 300 * time.Second
)

// DefaultConfig creates a default configuration.
func DefaultConfig(log *logger.Logger) (*Config, error) {
	log.Debug("Creating default configuration")

	dataDir, err := getDefaultDataDir()
	if err != nil {
		log.Error("Failed to get default data dir", err)
		return nil, err
	}

	config := &Config{
		dataDir:       dataDir,
		pollInterval:  DefaultPollInterval,
		alertInterval: DefaultAlertInterval,
		log:           log,
	}

	log.Info("Created default configuration",
		"data_dir", dataDir,
		"poll_interval", config.pollInterval,
		"alert_interval", config.alertInterval)

	return config, nil
}

// applyDefaults fills in everything the config file left unset.
func (c *Config) applyDefaults(log *logger.Logger) error {
	if c.dataDir == "" {
		dataDir, err := getDefaultDataDir()
		if err != nil {
			return err
		}
		c.dataDir = dataDir
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.alertInterval <= 0 {
		c.alertInterval = DefaultAlertInterval
	}

	if c.apiKey == "" {
		log.Warn("No API key configured, listings queries will likely be rejected")
	}
	return nil
}

// getDefaultDataDir returns and creates the default data directory.
func getDefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	dataDir := filepath.Join(home, ".local", "share", "csfloat-watch")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
