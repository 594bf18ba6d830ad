package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"csfloat-watch/pkg/logger"
)

// FindConfig loads the configuration, trying the provided path first and
// falling back to the default location, creating a default file there when
// none exists yet.
func FindConfig(providedPath string, log *logger.Logger) (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, err
	}
	defaultPath := filepath.Join(configDir, "config.json")

	return initializeConfig(providedPath, defaultPath, log)
}

// initializeConfig creates or loads the configuration.
func initializeConfig(providedPath string, defaultPath string, log *logger.Logger) (*Config, error) {
	// Try provided path first if specified
	if providedPath != "" {
		config, err := loadConfigFromPath(providedPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from provided path: %w", err)
		}
		return config, nil
	}

	// Try default path, create if doesn't exist
	if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
		config, err := DefaultConfig(log)
		if err != nil {
			return nil, err
		}

		if err := writeConfigFile(config, defaultPath); err != nil {
			return nil, err
		}
		log.Info("Wrote default configuration", "path", defaultPath)
		return config, nil
	}

	config, err := loadConfigFromPath(defaultPath, log)
	if err != nil {
		log.Warn("Failed to load existing config, using defaults", "path", defaultPath)
		return DefaultConfig(log)
	}
	return config, nil
}

// writeConfigFile persists a config as indented JSON.
func writeConfigFile(c *Config, path string) error {
	temp := struct {
		APIKey               string `json:"api_key"`
		DataDir              string `json:"data_dir"`
		NotifyCommand        string `json:"notify_command"`
		AlertSound           string `json:"alert_sound"`
		PollIntervalSeconds  int    `json:"poll_interval_seconds"`
		AlertIntervalSeconds int    `json:"alert_interval_seconds"`
	}{
		APIKey:               c.apiKey,
		DataDir:              c.dataDir,
		NotifyCommand:        c.notifyCommand,
		AlertSound:           c.alertSound,
		PollIntervalSeconds:  int(c.pollInterval.Seconds()),
		AlertIntervalSeconds: int(c.alertInterval.Seconds()),
	}

	data, err := json.MarshalIndent(temp, "", "    ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// getConfigDir returns and creates the user config directory.
func getConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(base, "csfloat-watch")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}
