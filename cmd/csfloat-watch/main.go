package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"csfloat-watch/internal/app"
	"csfloat-watch/internal/models"
	"csfloat-watch/internal/tracker"
	"csfloat-watch/pkg/config"
	"csfloat-watch/pkg/global"
	"csfloat-watch/pkg/logger"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")

	search := flag.String("search", "", "search listings for an item name")
	wear := flag.String("wear", "", "wear code (FN, MW, FT, WW, BS)")
	minFloat := flag.Float64("min-float", -1, "minimum float filter")
	maxFloat := flag.Float64("max-float", -1, "maximum float filter")
	category := flag.Int("category", 0, "category (1=Normal, 2=StatTrak, 3=Souvenir)")
	sortBy := flag.String("sort", "", "sort order (most_recent, lowest_price, lowest_float)")
	buyNow := flag.Bool("buy-now", false, "exclude auction listings")
	limit := flag.Int("limit", 0, "result cap (default 50)")

	track := flag.Bool("track", false, "save the search as a tracked item")
	alerts := flag.Bool("alerts", true, "track for alerts (with -track)")
	prices := flag.Bool("prices", false, "track price evolution (with -track)")
	threshold := flag.Float64("threshold", -1, "alert price cap in dollars (with -track)")
	floatMin := flag.Float64("float-min", 0, "alert float window minimum (with -track)")
	floatMax := flag.Float64("float-max", 1, "alert float window maximum (with -track)")

	untrack := flag.String("untrack", "", "remove a tracked item by search key")
	list := flag.Bool("list", false, "list tracked items")
	history := flag.Bool("history", false, "show recent searches")
	lowest := flag.String("lowest", "", "show the lowest price for an item")
	bulk := flag.String("bulk", "", "comma-separated item names for bulk lowest-price lookup")
	flag.Parse()

	// Setup logging level
	logLevel := zerolog.InfoLevel
	if *debug {
		logLevel = zerolog.DebugLevel
	}

	// Initialize logger first for early logging
	log, err := logger.NewLogger(
		logger.WithConsole(),
		logger.WithLevel(logLevel),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting csfloat-watch",
		"version", "1.0.0",
		"pid", os.Getpid(),
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"debug", *debug)

	// Load configuration
	cfg, err := config.FindConfig(*configPath, log)
	if err != nil {
		log.Error("Failed to load configuration", err, "provided_path", *configPath)
		os.Exit(1)
	}
	log.Info("Configuration loaded successfully",
		"data_dir", cfg.GetDataDir(),
		"poll_interval", cfg.GetPollInterval(),
		"alert_interval", cfg.GetAlertInterval())

	// Initialize globals
	global.InitGlobals(cfg, log)

	watch, err := app.NewCSFloatWatch()
	if err != nil {
		log.Fatal("Failed to create csfloat-watch", err)
	}
	defer watch.Close()

	params := models.SearchParams{
		Wear:       strings.ToUpper(*wear),
		Category:   *category,
		SortBy:     *sortBy,
		BuyNowOnly: *buyNow,
		Limit:      *limit,
	}
	if *minFloat >= 0 {
		params.MinFloat = minFloat
	}
	if *maxFloat >= 0 {
		params.MaxFloat = maxFloat
	}

	switch {
	case *search != "":
		params.MarketHashName = models.ExpandWearName(*search, params.Wear)
		listings, err := watch.Search(params)
		if err != nil {
			log.Fatal("Search failed", err)
		}
		watch.DisplayListings(listings)

		if *track {
			opts := tracker.Options{
				Alerts:   *alerts,
				Prices:   *prices,
				FloatMin: floatMin,
				FloatMax: floatMax,
			}
			if *threshold >= 0 {
				opts.Threshold = threshold
			}
			key, err := watch.Manager.Track(params, opts)
			if err != nil {
				log.Fatal("Failed to track search", err)
			}
			fmt.Printf("Tracking %q. Run without flags to keep the loops alive.\n", key)
			if err := watch.Run(); err != nil {
				log.Fatal("Application error", err)
			}
		}

	case *untrack != "":
		if err := watch.Manager.Remove(*untrack); err != nil {
			log.Fatal("Failed to remove tracked item", err)
		}
		fmt.Printf("Removed tracking for %q\n", *untrack)

	case *list:
		watch.List()

	case *history:
		if err := watch.ShowHistory(10); err != nil {
			log.Fatal("Failed to read search history", err)
		}

	case *lowest != "":
		name := models.ExpandWearName(*lowest, params.Wear)
		if err := watch.Lowest(name, params); err != nil {
			log.Fatal("Lowest price lookup failed", err)
		}

	case *bulk != "":
		var names []string
		for _, n := range strings.Split(*bulk, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		watch.BulkSearch(names, params)

	default:
		if err := watch.Run(); err != nil {
			log.Fatal("Application error", err)
		}
	}
}
