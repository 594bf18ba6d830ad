package tracker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"csfloat-watch/internal/models"
)

// LogFileName returns the observation log file name for a search key: spaces
// and pipes become underscores so "AK-47 | Redline (FT)" stays a sane path.
func LogFileName(key string) string {
	sanitized := strings.NewReplacer(" ", "_", "|", "_").Replace(key)
	return sanitized + ".csv"
}

func (m *Manager) logPath(key string) string {
	return filepath.Join(m.logsDir, LogFileName(key))
}

// LogPath returns the observation log path for a tracked entity.
func (m *Manager) LogPath(key string) string {
	return m.logPath(key)
}

// appendObservations writes one CSV line per listing that carries a numeric
// price: timestamp,price,float,listing_id. Float and listing id stay empty
// when the listing lacks them.
func (m *Manager) appendObservations(key string, listings []models.Listing) error {
	if err := os.MkdirAll(m.logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create tracked logs directory: %w", err)
	}

	f, err := os.OpenFile(m.logPath(key), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open observation log: %w", err)
	}
	defer f.Close()

	ts := time.Now().Format(time.RFC3339)
	for _, l := range listings {
		if l.PriceCents == nil {
			continue
		}
		floatStr := ""
		if l.FloatValue != nil {
			floatStr = strconv.FormatFloat(*l.FloatValue, 'f', -1, 64)
		}
		if _, err := fmt.Fprintf(f, "%s,%.2f,%s,%s\n", ts, l.Price(), floatStr, l.ID); err != nil {
			return fmt.Errorf("failed to write observation: %w", err)
		}
	}
	return nil
}

// removeLog deletes an entity's observation log. A missing log is fine.
func (m *Manager) removeLog(key string) error {
	err := os.Remove(m.logPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
