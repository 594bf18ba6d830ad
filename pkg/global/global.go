package global

import (
	"sync"

	"csfloat-watch/internal/ratelimit"
	"csfloat-watch/pkg/config"
	"csfloat-watch/pkg/logger"
	"csfloat-watch/pkg/notify"
	"csfloat-watch/pkg/sound"
)

var (
	cfg           *config.Config
	log           *logger.Logger
	notifier      *notify.NotifyService
	soundNotifier *sound.SoundNotifier
	rateTracker   *ratelimit.Tracker
	initOnce      sync.Once
	mu            sync.RWMutex
)

// InitGlobals wires up the process-wide singletons: config, logger, the
// notification services and the one rate tracker every API caller shares.
func InitGlobals(config *config.Config, logger *logger.Logger) {
	initOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		cfg = config
		log = logger
		notifier = notify.NewNotifyService(config.GetNotifyCommand(), logger)
		rateTracker = ratelimit.New()

		if path := config.GetAlertSound(); path != "" {
			sn, err := sound.NewSoundNotifier(path)
			if err != nil {
				logger.Warn("Alert sound disabled", "path", path, "error", err)
			} else {
				soundNotifier = sn
			}
		}
	})
}

// GetConfig returns the global config instance
func GetConfig() *config.Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// GetLogger returns the global logger instance
func GetLogger() *logger.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// GetNotifier returns the global notifier instance
func GetNotifier() *notify.NotifyService {
	mu.RLock()
	defer mu.RUnlock()
	return notifier
}

// GetSoundNotifier returns the alert sound player, nil when not configured.
func GetSoundNotifier() *sound.SoundNotifier {
	mu.RLock()
	defer mu.RUnlock()
	return soundNotifier
}

// GetRateTracker returns the shared request rate tracker.
func GetRateTracker() *ratelimit.Tracker {
	mu.RLock()
	defer mu.RUnlock()
	return rateTracker
}

// GetAll returns all global instances at once.
// This can be useful when multiple services are needed together.
func GetAll() (*config.Config, *logger.Logger, *notify.NotifyService) {
	mu.RLock()
	defer mu.RUnlock()
	return cfg, log, notifier
}
