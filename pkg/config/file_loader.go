package config

import (
	"encoding/json"
	"os"
	"time"

	"csfloat-watch/pkg/logger"
)

// LoadFromFile loads the configuration from a JSON file.
func (c *Config) LoadFromFile(path string, log *logger.Logger) error {
	log.Debug("Loading configuration from file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("Failed to read config file", err, "path", path)
		return err
	}
	log.Debug("Config file read successfully", "size_bytes", len(data))

	// Use a temporary struct to unmarshal JSON
	var temp struct {
		APIKey               string `json:"api_key"`
		DataDir              string `json:"data_dir"`
		NotifyCommand        string `json:"notify_command"`
		AlertSound           string `json:"alert_sound"`
		PollIntervalSeconds  int    `json:"poll_interval_seconds"`
		AlertIntervalSeconds int    `json:"alert_interval_seconds"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		log.Error("Failed to parse config JSON", err)
		return err
	}
	log.Debug("Config JSON parsed successfully")

	// Assign to private fields
	c.apiKey = temp.APIKey
	c.dataDir = temp.DataDir
	c.notifyCommand = temp.NotifyCommand
	c.alertSound = temp.AlertSound
	c.pollInterval = time.Duration(temp.PollIntervalSeconds) * time.Second
	c.alertInterval = time.Duration(temp.AlertIntervalSeconds) * time.Second

	return c.applyDefaults(log)
}

// loadConfigFromPath loads the configuration from a file.
func loadConfigFromPath(path string, log *logger.Logger) (*Config, error) {
	config := &Config{log: log}
	if err := config.LoadFromFile(path, log); err != nil {
		return nil, err
	}
	return config, nil
}
