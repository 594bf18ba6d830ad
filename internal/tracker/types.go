package tracker

import (
	"sync"
	"time"

	"csfloat-watch/internal/models"
	"csfloat-watch/internal/registry"
	"csfloat-watch/pkg/core"
	"csfloat-watch/pkg/notify"
)

// ListingsClient is the one call the background loops make against the
// marketplace.
type ListingsClient interface {
	Query(params models.SearchParams) ([]models.Listing, error)
}

// Notifier delivers a desktop notification. Failures are tolerated.
type Notifier interface {
	Show(title string, message string, nType notify.NotificationType) error
}

// AlertSounder plays an audible cue alongside a notification.
type AlertSounder interface {
	PlayAlertSound() error
}

// Options configures a tracked entry when tracking starts or changes.
// Nil float bounds default to the full [0,1] wear range; a nil threshold
// means no price cap.
type Options struct {
	Alerts    bool
	Prices    bool
	Threshold *float64
	FloatMin  *float64
	FloatMax  *float64
}

// Manager owns every background loop. Each tracked entity can have one price
// poller and one alert checker; each loop has its own stop channel, closed
// exactly once by the manager. Loops never talk to each other.
type Manager struct {
	client   ListingsClient
	registry *registry.Registry
	notifier Notifier
	sound    AlertSounder
	log      core.Logger

	logsDir       string
	pollInterval  time.Duration
	alertInterval time.Duration
	tick          time.Duration

	mu       sync.Mutex
	pollers  map[string]chan struct{}
	checkers map[string]chan struct{}
	wg       sync.WaitGroup
}
