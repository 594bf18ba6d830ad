package tracker

import (
	"errors"

	"csfloat-watch/internal/csfloat"
	"csfloat-watch/internal/models"
)

// runPricePoller is the price-evolution loop for one tracked entity. Every
// cycle it queries the listings endpoint and appends one observation per
// returned listing to the entity's log. Failed cycles are skipped, never
// fatal. A stop request lets the in-flight cycle finish, so a result already
// being processed is still written once.
func (m *Manager) runPricePoller(key string, params models.SearchParams, stop chan struct{}) {
	defer m.wg.Done()

	m.log.Info("Price tracking started",
		"item", key,
		"interval", m.pollInterval,
		"log", m.logPath(key))

	for {
		listings, err := m.client.Query(params)
		switch {
		case errors.Is(err, csfloat.ErrRateLimited):
			m.log.Warn("Rate limited, skipping price cycle", "item", key)
		case err != nil:
			m.log.Error("Price poll query failed", err, "item", key)
		case len(listings) > 0:
			if err := m.appendObservations(key, listings); err != nil {
				// Skip the write and keep polling.
				m.log.Error("Failed to append observations", err, "item", key)
			} else {
				m.log.Debug("Tracked listings", "item", key, "count", len(listings))
			}
		}

		if !m.waitCycle(stop, m.pollInterval) {
			m.log.Info("Price tracking stopped", "item", key)
			return
		}
	}
}
