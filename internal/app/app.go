package app

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"csfloat-watch/internal/csfloat"
	"csfloat-watch/internal/models"
	"csfloat-watch/internal/ratelimit"
	"csfloat-watch/internal/registry"
	"csfloat-watch/internal/storage"
	"csfloat-watch/internal/tracker"
	"csfloat-watch/pkg/config"
	"csfloat-watch/pkg/core"
	"csfloat-watch/pkg/global"
	"csfloat-watch/pkg/logger"
)

const historyRetention = 30 * 24 * time.Hour

// App wires the client, registry, tracking manager and history store
// together behind the CLI.
type App struct {
	Client   *csfloat.Client
	Registry *registry.Registry
	Manager  *tracker.Manager
	History  *storage.DB

	cfg         *config.Config
	log         *logger.Logger
	rate        *ratelimit.Tracker
	historyDone chan struct{}
}

// NewCSFloatWatch builds the application from the initialized globals.
func NewCSFloatWatch() (*App, error) {
	cfg, log, notifier := global.GetAll()
	rate := global.GetRateTracker()

	client := csfloat.NewClient(cfg.GetAPIKey(), rate, log)

	reg := registry.New(cfg.GetRegistryPath())
	if err := reg.Load(); err != nil {
		return nil, fmt.Errorf("failed to load tracked items: %w", err)
	}

	history, err := storage.New(cfg.GetDataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search history: %w", err)
	}

	historyDone := startHistoryCleanup(history, log)

	manager := tracker.NewManager(
		client,
		reg,
		notifier,
		log,
		cfg.GetTrackedLogsDir(),
		cfg.GetPollInterval(),
		cfg.GetAlertInterval(),
	)
	if s := global.GetSoundNotifier(); s != nil {
		manager.SetAlertSound(s)
	}

	return &App{
		Client:      client,
		Registry:    reg,
		Manager:     manager,
		History:     history,
		cfg:         cfg,
		log:         log,
		rate:        rate,
		historyDone: historyDone,
	}, nil
}

// startHistoryCleanup drops old history rows in the background. The returned
// channel closes when the pass finishes; Close waits on it so the database
// handle cannot be pulled out from under an in-flight cleanup.
func startHistoryCleanup(history *storage.DB, log core.Logger) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := history.Cleanup(historyRetention); err != nil {
			log.Error("Failed to cleanup search history", err)
		}
	}()
	return done
}

// Run resumes every persisted tracking loop and blocks until the process is
// asked to stop, then shuts the loops down cooperatively.
func (a *App) Run() error {
	a.Manager.ResumeAll()

	tracked := a.Registry.All()
	a.log.Info("Watching tracked items", "count", len(tracked))
	fmt.Printf("csfloat-watch running, %d tracked item(s). Ctrl-C to stop.\n", len(tracked))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig

	a.log.Info("Shutting down", "signal", s.String())
	a.Manager.StopAll()
	return nil
}

// Search runs one foreground query, records it in the history store and
// returns the listings.
func (a *App) Search(params models.SearchParams) ([]models.Listing, error) {
	listings, err := a.Client.Query(params)
	if err != nil {
		return nil, err
	}

	rec := models.SearchRecord{
		Timestamp: time.Now(),
		Key:       params.SearchKey(),
		Params:    params,
		Results:   len(listings),
	}
	if err := a.History.AddSearch(rec); err != nil {
		a.log.Error("Failed to record search history", err)
	}

	return listings, nil
}

// DisplayListings prints listings the way the log lines spell them.
func (a *App) DisplayListings(listings []models.Listing) {
	if len(listings) == 0 {
		fmt.Println("No listings found")
		return
	}

	for _, l := range listings {
		price := "?"
		if l.PriceCents != nil {
			price = fmt.Sprintf("$%.2f", l.Price())
		}
		floatStr := "?"
		if l.FloatValue != nil {
			floatStr = fmt.Sprintf("%.6f", *l.FloatValue)
		}
		saleInfo := "Buy now"
		if l.IsAuction {
			saleInfo = "Auction"
		}
		if l.TimeLeft != "" {
			saleInfo += fmt.Sprintf(" (time left: %s)", l.TimeLeft)
		}
		url := l.URL()
		if url == "" {
			url = "N/A"
		}
		fmt.Printf("%s | %s | float=%s | price=%s | %s | %s\n",
			l.Name, l.WearName, floatStr, price, saleInfo, url)
	}
}

// Lowest prints the cheapest qualifying listing for an item.
func (a *App) Lowest(name string, params models.SearchParams) error {
	lowest, err := a.Client.FetchLowestListing(name, params)
	if err != nil {
		return err
	}
	if lowest == nil {
		fmt.Printf("No price information found for %q\n", name)
		return nil
	}
	fmt.Printf("Lowest price for %q is $%.2f (%s)\n", name, lowest.Price(), lowest.URL())
	return nil
}

// BulkSearch looks up the lowest price for several items, sleeping the rate
// tracker's minimum interval between requests so a tight sequence cannot
// trip the API limit.
func (a *App) BulkSearch(names []string, params models.SearchParams) {
	for i, name := range names {
		if i > 0 {
			time.Sleep(a.rate.MinInterval())
		}
		if err := a.Lowest(name, params); err != nil {
			a.log.Error("Bulk lookup failed", err, "item", name)
			fmt.Printf("Lookup failed for %q: %v\n", name, err)
		}
	}
	a.log.Info("Bulk search finished",
		"items", len(names),
		"requests_last_minute", a.rate.CurrentRate())
}

// List prints every tracked item with its modes and loop state.
func (a *App) List() {
	items := a.Registry.All()
	if len(items) == 0 {
		fmt.Println("No tracked items")
		return
	}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		item := items[key]
		modes := ""
		if item.TrackAlerts {
			modes = "Alert"
		}
		if item.TrackPrices {
			if modes != "" {
				modes += "+"
			}
			modes += "Evolution"
		}
		if modes == "" {
			modes = "None"
		}
		prices, alerts := a.Manager.Running(key)
		fmt.Printf("%s | %s | running: prices=%t alerts=%t", key, modes, prices, alerts)
		if item.LastNotifiedPrice != nil {
			fmt.Printf(" | last notified $%.2f", *item.LastNotifiedPrice)
		}
		fmt.Println()
	}
}

// ShowHistory prints the most recent searches.
func (a *App) ShowHistory(limit int) error {
	records, err := a.History.RecentSearches(limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No search history")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s | %s | %d result(s)\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Key, rec.Results)
	}
	return nil
}

// Close waits for the background cleanup and releases the history store.
func (a *App) Close() error {
	if a.historyDone != nil {
		<-a.historyDone
	}
	return a.History.Close()
}
