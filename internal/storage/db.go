package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"csfloat-watch/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS searches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp DATETIME NOT NULL,
    search_key TEXT NOT NULL,
    params TEXT NOT NULL,
    results INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// New opens the search history database inside the data directory.
func New(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "history.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrent access
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Create schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// AddSearch records one executed search.
func (d *DB) AddSearch(rec models.SearchRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("failed to encode search params: %w", err)
	}

	_, err = d.db.Exec(
		"INSERT INTO searches (timestamp, search_key, params, results) VALUES (?, ?, ?, ?)",
		rec.Timestamp, rec.Key, string(params), rec.Results)
	if err != nil {
		return fmt.Errorf("failed to insert search: %w", err)
	}
	return nil
}

// RecentSearches returns the latest searches, newest first.
func (d *DB) RecentSearches(limit int) ([]models.SearchRecord, error) {
	rows, err := d.db.Query(`
        SELECT timestamp, search_key, params, results
        FROM searches
        ORDER BY timestamp DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}
	defer rows.Close()

	var records []models.SearchRecord
	for rows.Next() {
		var rec models.SearchRecord
		var params string
		if err := rows.Scan(&rec.Timestamp, &rec.Key, &params, &rec.Results); err != nil {
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &rec.Params); err != nil {
			return nil, fmt.Errorf("failed to decode search params: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Cleanup drops history rows older than the given age.
func (d *DB) Cleanup(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	_, err := d.db.Exec("DELETE FROM searches WHERE timestamp < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old searches: %w", err)
	}
	return nil
}
