package tracker

import (
	"fmt"
	"time"

	"csfloat-watch/internal/models"
	"csfloat-watch/internal/registry"
	"csfloat-watch/pkg/core"
)

// NewManager creates a tracking manager. The registry must already be loaded.
func NewManager(
	client ListingsClient,
	reg *registry.Registry,
	notifier Notifier,
	log core.Logger,
	logsDir string,
	pollInterval time.Duration,
	alertInterval time.Duration,
) *Manager {
	return &Manager{
		client:        client,
		registry:      reg,
		notifier:      notifier,
		log:           log,
		logsDir:       logsDir,
		pollInterval:  pollInterval,
		alertInterval: alertInterval,
		tick:          time.Second,
		pollers:       make(map[string]chan struct{}),
		checkers:      make(map[string]chan struct{}),
	}
}

// SetAlertSound attaches an audible cue played on alert matches.
func (m *Manager) SetAlertSound(s AlertSounder) {
	m.sound = s
}

// Track persists tracking intent for a search and starts or stops the loops
// to match. The notification dedup state of an existing entry survives.
func (m *Manager) Track(params models.SearchParams, opts Options) (string, error) {
	key := params.SearchKey()

	item := models.TrackedItem{
		Params:      params,
		TrackAlerts: opts.Alerts,
		TrackPrices: opts.Prices,
		Threshold:   opts.Threshold,
		FloatMin:    0,
		FloatMax:    1,
	}
	if opts.FloatMin != nil {
		item.FloatMin = *opts.FloatMin
	}
	if opts.FloatMax != nil {
		item.FloatMax = *opts.FloatMax
	}
	if existing, ok := m.registry.Get(key); ok {
		item.LastNotifiedPrice = existing.LastNotifiedPrice
	}

	if err := m.registry.Upsert(key, item); err != nil {
		return "", fmt.Errorf("failed to persist tracking for %q: %w", key, err)
	}

	if opts.Alerts {
		m.startChecker(key)
	} else {
		m.stopLoop(m.checkers, key)
	}
	if opts.Prices {
		m.startPoller(key, params)
	} else {
		m.stopLoop(m.pollers, key)
	}

	m.log.Info("Tracking preferences saved",
		"item", key,
		"alerts", opts.Alerts,
		"prices", opts.Prices)
	return key, nil
}

// StartPricePolling begins the price-evolution loop for a tracked entity and
// records the intent so a process restart resumes it.
func (m *Manager) StartPricePolling(key string) error {
	item, ok := m.registry.Get(key)
	if !ok {
		return fmt.Errorf("no tracked item %q", key)
	}
	if !m.startPoller(key, item.Params) {
		return nil
	}
	return m.registry.Update(key, func(t *models.TrackedItem) {
		t.TrackPrices = true
	})
}

// StopPricePolling signals the loop to stop and clears the persisted flag so
// a restart does not resume it. The loop finishes its in-flight cycle.
func (m *Manager) StopPricePolling(key string) error {
	m.stopLoop(m.pollers, key)
	return m.registry.Update(key, func(t *models.TrackedItem) {
		t.TrackPrices = false
	})
}

// StartAlertChecker begins the alert loop for a tracked entity.
func (m *Manager) StartAlertChecker(key string) error {
	if _, ok := m.registry.Get(key); !ok {
		return fmt.Errorf("no tracked item %q", key)
	}
	if !m.startChecker(key) {
		return nil
	}
	return m.registry.Update(key, func(t *models.TrackedItem) {
		t.TrackAlerts = true
	})
}

// StopAlertChecker signals the alert loop to stop and clears the flag.
func (m *Manager) StopAlertChecker(key string) error {
	m.stopLoop(m.checkers, key)
	return m.registry.Update(key, func(t *models.TrackedItem) {
		t.TrackAlerts = false
	})
}

// Remove stops both loops for an entity, deletes its registry entry and its
// observation log. Removing an unknown key is a no-op.
func (m *Manager) Remove(key string) error {
	m.stopLoop(m.pollers, key)
	m.stopLoop(m.checkers, key)

	if err := m.registry.Remove(key); err != nil {
		return fmt.Errorf("failed to remove %q from registry: %w", key, err)
	}
	if err := m.removeLog(key); err != nil {
		return fmt.Errorf("failed to remove observation log for %q: %w", key, err)
	}

	m.log.Info("Removed tracking", "item", key)
	return nil
}

// ResumeAll starts loops for every entry whose persisted flags ask for them.
// Called once at startup.
func (m *Manager) ResumeAll() {
	for key, item := range m.registry.All() {
		if item.TrackAlerts {
			m.startChecker(key)
		}
		if item.TrackPrices {
			m.startPoller(key, item.Params)
		}
	}
}

// StopAll signals every loop and waits for them to finish their in-flight
// cycle. Persisted flags are left alone so the next start resumes tracking.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for key, stop := range m.pollers {
		close(stop)
		delete(m.pollers, key)
	}
	for key, stop := range m.checkers {
		close(stop)
		delete(m.checkers, key)
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// Running reports whether loops are active for a key.
func (m *Manager) Running(key string) (prices bool, alerts bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, prices = m.pollers[key]
	_, alerts = m.checkers[key]
	return prices, alerts
}

// startPoller spawns the price loop unless one is already running.
func (m *Manager) startPoller(key string, params models.SearchParams) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.pollers[key]; running {
		m.log.Debug("Already tracking prices", "item", key)
		return false
	}
	stop := make(chan struct{})
	m.pollers[key] = stop
	m.wg.Add(1)
	go m.runPricePoller(key, params, stop)
	return true
}

// startChecker spawns the alert loop unless one is already running.
func (m *Manager) startChecker(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, running := m.checkers[key]; running {
		m.log.Debug("Already checking alerts", "item", key)
		return false
	}
	stop := make(chan struct{})
	m.checkers[key] = stop
	m.wg.Add(1)
	go m.runAlertChecker(key, stop)
	return true
}

// stopLoop closes a loop's stop channel if it is running.
func (m *Manager) stopLoop(loops map[string]chan struct{}, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stop, ok := loops[key]; ok {
		close(stop)
		delete(loops, key)
	}
}

// waitCycle sleeps for one cycle period in one-second ticks so a stop request
// is observed within a second. Returns false when stopped.
func (m *Manager) waitCycle(stop <-chan struct{}, period time.Duration) bool {
	deadline := time.Now().Add(period)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		tick := m.tick
		if remaining < tick {
			tick = remaining
		}
		select {
		case <-stop:
			return false
		case <-time.After(tick):
		}
	}
}
