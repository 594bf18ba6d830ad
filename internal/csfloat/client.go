package csfloat

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"csfloat-watch/internal/models"
	"csfloat-watch/internal/ratelimit"
	"csfloat-watch/pkg/core"
)

const (
	DefaultBaseURL = "https://csfloat.com/api/v1/listings"

	requestTimeout = 10 * time.Second

	// rateLimitHeader declares the current requests-per-minute ceiling.
	rateLimitHeader = "X-RateLimit-Limit"

	maxBodySize = 8 << 20
)

// ErrRateLimited reports an HTTP 429 from the listings endpoint. Callers must
// not confuse it with an empty result set, though both mean "try again next
// cycle" for the background loops.
var ErrRateLimited = errors.New("csfloat: rate limit exceeded")

// Client issues queries against the CSFloat listings endpoint. Every request,
// whatever its outcome status, feeds the shared rate tracker so the learned
// ceiling stays current.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	rate    *ratelimit.Tracker
	log     core.Logger
}

// NewClient creates a listings client. The rate tracker is shared process
// state and must be the one constructed at startup.
func NewClient(apiKey string, rate *ratelimit.Tracker, log core.Logger) *Client {
	return &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		rate:    rate,
		log:     log,
	}
}

// SetBaseURL overrides the listings endpoint. Tests point this at a local server.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Query runs one listings search. Outcomes are classified three ways:
// a nil error with listings (possibly empty) on 2xx, ErrRateLimited on 429,
// and a plain error for every network failure or other status. A 2xx body of
// unexpected shape is treated as no listings, not as an error.
func (c *Client) Query(params models.SearchParams) ([]models.Listing, error) {
	reqURL := fmt.Sprintf("%s?%s", c.baseURL, params.Values().Encode())

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listings request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	c.log.Debug("Querying listings", "params", params.Values().Encode())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listings request failed: %w", err)
	}
	defer resp.Body.Close()

	c.rate.RecordRequest()
	c.rate.UpdateCeiling(resp.Header.Get(rateLimitHeader))

	c.log.Debug("Listings response",
		"status", resp.StatusCode,
		"rate_ceiling", c.rate.Ceiling(),
		"requests_last_minute", c.rate.CurrentRate())

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("listings request returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read listings response: %w", err)
	}

	listings, err := models.DecodeListings(body)
	if err != nil {
		c.log.Warn("Unexpected listings response shape, treating as empty", "error", err)
		return nil, nil
	}
	return listings, nil
}

// FetchLowestListing returns the cheapest listing for an item after applying
// the float window and, when buy-now-only is set, dropping auctions the
// server let through. Returns nil when nothing qualifies.
func (c *Client) FetchLowestListing(name string, params models.SearchParams) (*models.Listing, error) {
	params.MarketHashName = name

	listings, err := c.Query(params)
	if err != nil {
		return nil, err
	}

	var lowest *models.Listing
	for i := range listings {
		l := listings[i]
		if l.PriceCents == nil {
			continue
		}
		if params.BuyNowOnly && l.IsAuction {
			continue
		}
		if params.MinFloat != nil && (l.FloatValue == nil || *l.FloatValue < *params.MinFloat) {
			continue
		}
		if params.MaxFloat != nil && (l.FloatValue == nil || *l.FloatValue > *params.MaxFloat) {
			continue
		}
		if lowest == nil || *l.PriceCents < *lowest.PriceCents {
			lowest = &listings[i]
		}
	}
	return lowest, nil
}
