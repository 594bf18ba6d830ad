package tracker

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csfloat-watch/internal/csfloat"
	"csfloat-watch/internal/models"
	"csfloat-watch/internal/registry"
	"csfloat-watch/pkg/notify"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})        {}
func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Warn(string, ...interface{})         {}
func (nopLogger) Error(string, error, ...interface{}) {}

type fakeClient struct {
	mu    sync.Mutex
	query func(models.SearchParams) ([]models.Listing, error)
	calls int
}

func (c *fakeClient) Query(params models.SearchParams) ([]models.Listing, error) {
	c.mu.Lock()
	c.calls++
	fn := c.query
	c.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(params)
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type notification struct {
	title   string
	message string
	nType   notify.NotificationType
}

type fakeNotifier struct {
	mu    sync.Mutex
	shown []notification
}

func (n *fakeNotifier) Show(title, message string, nType notify.NotificationType) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, notification{title, message, nType})
	return nil
}

func (n *fakeNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification, len(n.shown))
	copy(out, n.shown)
	return out
}

type fakeSounder struct {
	mu    sync.Mutex
	plays int
}

func (s *fakeSounder) PlayAlertSound() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plays++
	return nil
}

func (s *fakeSounder) playCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plays
}

func f64(v float64) *float64 { return &v }

func i64(v int64) *int64 { return &v }

func newTestManager(t *testing.T, client ListingsClient, notifier Notifier) (*Manager, *registry.Registry, string) {
	t.Helper()
	dir := t.TempDir()

	reg := registry.New(filepath.Join(dir, "tracked_items.json"))
	require.NoError(t, reg.Load())

	logsDir := filepath.Join(dir, "tracked_logs")
	m := NewManager(client, reg, notifier, nopLogger{}, logsDir, 20*time.Millisecond, 20*time.Millisecond)
	m.tick = time.Millisecond
	t.Cleanup(m.StopAll)
	return m, reg, logsDir
}

func alertItem(threshold float64, floatMin, floatMax float64) models.TrackedItem {
	return models.TrackedItem{
		Params:      models.SearchParams{MarketHashName: "AK-47 | Redline", Wear: "FT"},
		TrackAlerts: true,
		Threshold:   &threshold,
		FloatMin:    floatMin,
		FloatMax:    floatMax,
	}
}

func TestLogFileName(t *testing.T) {
	assert.Equal(t, "AK-47___Redline_(FT).csv", LogFileName("AK-47 | Redline (FT)"))
	assert.Equal(t, "Glock-18.csv", LogFileName("Glock-18"))
}

func TestCheckListingsMatchWindow(t *testing.T) {
	notifier := &fakeNotifier{}
	sound := &fakeSounder{}
	m, reg, _ := newTestManager(t, &fakeClient{}, notifier)
	m.SetAlertSound(sound)

	item := alertItem(6.00, 0, 0.1)
	require.NoError(t, reg.Upsert("AK-47 | Redline (FT)", item))

	m.checkListings("AK-47 | Redline (FT)", item, []models.Listing{
		{ID: "high", PriceCents: i64(1000), FloatValue: f64(0.05)},
		{ID: "float-out", PriceCents: i64(500), FloatValue: f64(0.9)},
		{ID: "no-float", PriceCents: i64(500)},
		{ID: "hit", PriceCents: i64(500), FloatValue: f64(0.05)},
	})

	shown := notifier.all()
	require.Len(t, shown, 1)
	assert.Equal(t, "Skin Alert!", shown[0].title)
	assert.Contains(t, shown[0].message, "$5.00")
	assert.Contains(t, shown[0].message, "0.0500")
	assert.Equal(t, notify.Alert, shown[0].nType)
	assert.Equal(t, 1, sound.playCount())

	// The notified price is persisted for dedup.
	saved, ok := reg.Get("AK-47 | Redline (FT)")
	require.True(t, ok)
	require.NotNil(t, saved.LastNotifiedPrice)
	assert.InDelta(t, 5.00, *saved.LastNotifiedPrice, 1e-9)
}

func TestCheckListingsDedupAndRetrigger(t *testing.T) {
	notifier := &fakeNotifier{}
	m, reg, _ := newTestManager(t, &fakeClient{}, notifier)

	key := "AK-47 | Redline (FT)"
	item := alertItem(6.00, 0, 1)
	require.NoError(t, reg.Upsert(key, item))

	hit := []models.Listing{{ID: "a", PriceCents: i64(500), FloatValue: f64(0.2)}}

	m.checkListings(key, item, hit)
	require.Len(t, notifier.all(), 1)

	// Same price again stays quiet.
	item, _ = reg.Get(key)
	m.checkListings(key, item, hit)
	assert.Len(t, notifier.all(), 1)

	// A higher matching price stays quiet too.
	item, _ = reg.Get(key)
	m.checkListings(key, item, []models.Listing{{ID: "b", PriceCents: i64(550), FloatValue: f64(0.2)}})
	assert.Len(t, notifier.all(), 1)

	// A strictly lower price notifies again.
	item, _ = reg.Get(key)
	m.checkListings(key, item, []models.Listing{{ID: "c", PriceCents: i64(450), FloatValue: f64(0.2)}})
	shown := notifier.all()
	require.Len(t, shown, 2)
	assert.Contains(t, shown[1].message, "$4.50")
}

func TestCheckListingsDedupWithinOneBatch(t *testing.T) {
	notifier := &fakeNotifier{}
	m, reg, _ := newTestManager(t, &fakeClient{}, notifier)

	key := "AK-47 | Redline (FT)"
	item := alertItem(6.00, 0, 1)
	require.NoError(t, reg.Upsert(key, item))

	// Descending prices in one response: each improvement notifies, the
	// equal price at the end does not.
	m.checkListings(key, item, []models.Listing{
		{ID: "a", PriceCents: i64(500), FloatValue: f64(0.2)},
		{ID: "b", PriceCents: i64(400), FloatValue: f64(0.2)},
		{ID: "c", PriceCents: i64(400), FloatValue: f64(0.2)},
	})
	assert.Len(t, notifier.all(), 2)
}

func TestTrackPersistsFlagsAndStartsLoops(t *testing.T) {
	client := &fakeClient{}
	m, reg, _ := newTestManager(t, client, &fakeNotifier{})

	params := models.SearchParams{MarketHashName: "AK-47 | Redline", Wear: "FT"}
	key, err := m.Track(params, Options{
		Alerts:    true,
		Prices:    true,
		Threshold: f64(6.00),
		FloatMin:  f64(0.15),
		FloatMax:  f64(0.38),
	})
	require.NoError(t, err)
	assert.Equal(t, "AK-47 | Redline (FT)", key)

	item, ok := reg.Get(key)
	require.True(t, ok)
	assert.True(t, item.TrackAlerts)
	assert.True(t, item.TrackPrices)
	require.NotNil(t, item.Threshold)
	assert.InDelta(t, 6.00, *item.Threshold, 1e-9)
	assert.InDelta(t, 0.15, item.FloatMin, 1e-9)
	assert.InDelta(t, 0.38, item.FloatMax, 1e-9)

	prices, alerts := m.Running(key)
	assert.True(t, prices)
	assert.True(t, alerts)
}

func TestTrackPreservesNotifiedPrice(t *testing.T) {
	m, reg, _ := newTestManager(t, &fakeClient{}, &fakeNotifier{})

	params := models.SearchParams{MarketHashName: "AK-47 | Redline", Wear: "FT"}
	key := params.SearchKey()

	item := alertItem(6.00, 0, 1)
	item.LastNotifiedPrice = f64(4.50)
	require.NoError(t, reg.Upsert(key, item))

	_, err := m.Track(params, Options{Alerts: true, Threshold: f64(7.00)})
	require.NoError(t, err)

	saved, ok := reg.Get(key)
	require.True(t, ok)
	require.NotNil(t, saved.LastNotifiedPrice)
	assert.InDelta(t, 4.50, *saved.LastNotifiedPrice, 1e-9)
	require.NotNil(t, saved.Threshold)
	assert.InDelta(t, 7.00, *saved.Threshold, 1e-9)
}

func TestStopClearsPersistedFlags(t *testing.T) {
	m, reg, _ := newTestManager(t, &fakeClient{}, &fakeNotifier{})

	params := models.SearchParams{MarketHashName: "AK-47 | Redline", Wear: "FT"}
	key, err := m.Track(params, Options{Alerts: true, Prices: true})
	require.NoError(t, err)

	require.NoError(t, m.StopPricePolling(key))
	require.NoError(t, m.StopAlertChecker(key))

	item, ok := reg.Get(key)
	require.True(t, ok)
	assert.False(t, item.TrackPrices)
	assert.False(t, item.TrackAlerts)

	prices, alerts := m.Running(key)
	assert.False(t, prices)
	assert.False(t, alerts)
}

func TestStopAllLeavesFlagsForResume(t *testing.T) {
	m, reg, _ := newTestManager(t, &fakeClient{}, &fakeNotifier{})

	params := models.SearchParams{MarketHashName: "AK-47 | Redline", Wear: "FT"}
	key, err := m.Track(params, Options{Alerts: true, Prices: true})
	require.NoError(t, err)

	m.StopAll()

	prices, alerts := m.Running(key)
	assert.False(t, prices)
	assert.False(t, alerts)

	item, ok := reg.Get(key)
	require.True(t, ok)
	assert.True(t, item.TrackAlerts)
	assert.True(t, item.TrackPrices)

	m.ResumeAll()
	prices, alerts = m.Running(key)
	assert.True(t, prices)
	assert.True(t, alerts)
}

func TestRemoveDeletesEntryAndLog(t *testing.T) {
	m, reg, logsDir := newTestManager(t, &fakeClient{}, &fakeNotifier{})

	params := models.SearchParams{MarketHashName: "AK-47 | Redline", Wear: "FT"}
	key, err := m.Track(params, Options{Alerts: true})
	require.NoError(t, err)

	require.NoError(t, m.appendObservations(key, []models.Listing{
		{ID: "x", PriceCents: i64(500), FloatValue: f64(0.2)},
	}))
	logPath := filepath.Join(logsDir, LogFileName(key))
	_, err = os.Stat(logPath)
	require.NoError(t, err)

	require.NoError(t, m.Remove(key))

	_, ok := reg.Get(key)
	assert.False(t, ok)
	_, err = os.Stat(logPath)
	assert.True(t, os.IsNotExist(err))

	_, alerts := m.Running(key)
	assert.False(t, alerts)

	// Removing again, and removing the unknown, is a no-op.
	require.NoError(t, m.Remove(key))
	require.NoError(t, m.Remove("never tracked"))
}

func TestAppendObservationsFormat(t *testing.T) {
	m, _, logsDir := newTestManager(t, &fakeClient{}, &fakeNotifier{})

	key := "AK-47 | Redline (FT)"
	require.NoError(t, m.appendObservations(key, []models.Listing{
		{ID: "a", PriceCents: i64(1050), FloatValue: f64(0.25)},
		{ID: "b", FloatValue: f64(0.3)},
		{ID: "c", PriceCents: i64(99)},
	}))

	data, err := os.ReadFile(filepath.Join(logsDir, LogFileName(key)))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// b has no price and is skipped.
	require.Len(t, lines, 2)

	fields := strings.Split(lines[0], ",")
	require.Len(t, fields, 4)
	_, err = time.Parse(time.RFC3339, fields[0])
	assert.NoError(t, err)
	assert.Equal(t, "10.50", fields[1])
	assert.Equal(t, "0.25", fields[2])
	assert.Equal(t, "a", fields[3])

	fields = strings.Split(lines[1], ",")
	require.Len(t, fields, 4)
	assert.Equal(t, "0.99", fields[1])
	assert.Equal(t, "", fields[2], "missing float stays empty")
	assert.Equal(t, "c", fields[3])
}

func TestPollerWritesAndStops(t *testing.T) {
	client := &fakeClient{
		query: func(models.SearchParams) ([]models.Listing, error) {
			return []models.Listing{{ID: "a", PriceCents: i64(500), FloatValue: f64(0.2)}}, nil
		},
	}
	m, _, logsDir := newTestManager(t, client, &fakeNotifier{})

	params := models.SearchParams{MarketHashName: "AK-47 | Redline", Wear: "FT"}
	key, err := m.Track(params, Options{Prices: true})
	require.NoError(t, err)

	logPath := filepath.Join(logsDir, LogFileName(key))
	require.Eventually(t, func() bool {
		_, err := os.Stat(logPath)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, m.StopPricePolling(key))
	m.wg.Wait()

	// A stopped loop issues no further queries.
	calls := client.callCount()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, client.callCount())
}

func TestPollerRateLimitedWritesNothing(t *testing.T) {
	client := &fakeClient{
		query: func(models.SearchParams) ([]models.Listing, error) {
			return nil, csfloat.ErrRateLimited
		},
	}
	m, _, logsDir := newTestManager(t, client, &fakeNotifier{})

	params := models.SearchParams{MarketHashName: "AK-47 | Redline", Wear: "FT"}
	key, err := m.Track(params, Options{Prices: true})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return client.callCount() >= 2
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, m.StopPricePolling(key))
	m.wg.Wait()

	_, err = os.Stat(filepath.Join(logsDir, LogFileName(key)))
	assert.True(t, os.IsNotExist(err))
}

func TestAlertLoopFailedCycleKeepsDedupState(t *testing.T) {
	client := &fakeClient{
		query: func(models.SearchParams) ([]models.Listing, error) {
			return nil, csfloat.ErrRateLimited
		},
	}
	notifier := &fakeNotifier{}
	m, reg, _ := newTestManager(t, client, notifier)

	key := "AK-47 | Redline (FT)"
	item := alertItem(6.00, 0, 1)
	item.LastNotifiedPrice = f64(4.50)
	require.NoError(t, reg.Upsert(key, item))

	require.NoError(t, m.StartAlertChecker(key))
	require.Eventually(t, func() bool {
		return client.callCount() >= 2
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, m.StopAlertChecker(key))
	m.wg.Wait()

	assert.Empty(t, notifier.all())
	saved, ok := reg.Get(key)
	require.True(t, ok)
	require.NotNil(t, saved.LastNotifiedPrice)
	assert.InDelta(t, 4.50, *saved.LastNotifiedPrice, 1e-9)
}

func TestAlertLoopExitsWhenEntryRemoved(t *testing.T) {
	m, reg, _ := newTestManager(t, &fakeClient{}, &fakeNotifier{})

	key := "AK-47 | Redline (FT)"
	require.NoError(t, reg.Upsert(key, alertItem(6.00, 0, 1)))
	require.NoError(t, m.StartAlertChecker(key))

	require.NoError(t, reg.Remove(key))

	// The loop notices the missing entry on its next cycle and exits.
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("alert checker did not exit after entry removal")
	}
}

func TestStartUnknownKeyFails(t *testing.T) {
	m, _, _ := newTestManager(t, &fakeClient{}, &fakeNotifier{})

	assert.Error(t, m.StartPricePolling("nope"))
	assert.Error(t, m.StartAlertChecker("nope"))
}

func TestStartTwiceKeepsOneLoop(t *testing.T) {
	m, reg, _ := newTestManager(t, &fakeClient{}, &fakeNotifier{})

	key := "AK-47 | Redline (FT)"
	require.NoError(t, reg.Upsert(key, alertItem(6.00, 0, 1)))

	require.NoError(t, m.StartAlertChecker(key))
	require.NoError(t, m.StartAlertChecker(key))

	_, alerts := m.Running(key)
	assert.True(t, alerts)
	require.NoError(t, m.StopAlertChecker(key))
}
