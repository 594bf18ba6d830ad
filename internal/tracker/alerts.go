package tracker

import (
	"errors"
	"fmt"

	"csfloat-watch/internal/csfloat"
	"csfloat-watch/internal/models"
	"csfloat-watch/pkg/notify"
)

// runAlertChecker is the alert loop for one tracked entity. Each cycle it
// re-reads the entry so threshold edits take effect without a restart, then
// evaluates every returned listing against the alert window.
func (m *Manager) runAlertChecker(key string, stop chan struct{}) {
	defer m.wg.Done()

	m.log.Info("Alert checking started", "item", key, "interval", m.alertInterval)

	for {
		item, ok := m.registry.Get(key)
		if !ok {
			m.log.Info("Tracked item removed, alert checking stopped", "item", key)
			return
		}

		listings, err := m.client.Query(item.Params)
		switch {
		case errors.Is(err, csfloat.ErrRateLimited):
			m.log.Warn("Rate limited, skipping alert cycle", "item", key)
		case err != nil:
			m.log.Error("Alert check query failed", err, "item", key)
		default:
			m.checkListings(key, item, listings)
		}

		if !m.waitCycle(stop, m.alertInterval) {
			m.log.Info("Alert checking stopped", "item", key)
			return
		}
	}
}

// checkListings notifies on every listing inside the alert window whose price
// improves on the last notified one. Equal or worse prices stay quiet; a
// strictly lower price notifies again. The dedup state is persisted as soon
// as it changes so a crash cannot replay notifications.
func (m *Manager) checkListings(key string, item models.TrackedItem, listings []models.Listing) {
	last := item.LastNotifiedPrice

	for _, l := range listings {
		if !item.Matches(l) {
			continue
		}
		price := l.Price()
		if last != nil && price >= *last {
			continue
		}

		m.notifyMatch(key, l)

		p := price
		last = &p
		if err := m.registry.Update(key, func(t *models.TrackedItem) {
			t.LastNotifiedPrice = &p
		}); err != nil {
			m.log.Error("Failed to persist notified price", err, "item", key)
		}
	}
}

// notifyMatch fires the desktop notification and the optional sound cue.
// Neither is allowed to fail the loop.
func (m *Manager) notifyMatch(key string, l models.Listing) {
	message := fmt.Sprintf("%s found for $%.2f with float %.4f", key, l.Price(), *l.FloatValue)

	m.log.Info("Alert match", "item", key, "price", l.Price(), "float", *l.FloatValue, "url", l.URL())

	if err := m.notifier.Show("Skin Alert!", message, notify.Alert); err != nil {
		m.log.Debug("Notification not delivered", "item", key, "error", err)
	}
	if m.sound != nil {
		if err := m.sound.PlayAlertSound(); err != nil {
			m.log.Debug("Alert sound not played", "error", err)
		}
	}
}
