package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Wear codes accepted by the listings API.
var WearCodes = []string{"FN", "MW", "FT", "WW", "BS"}

// WearNames maps a wear code to the full name CSFloat embeds in market hash names.
var WearNames = map[string]string{
	"FN": "Factory New",
	"MW": "Minimal Wear",
	"FT": "Field-Tested",
	"WW": "Well-Worn",
	"BS": "Battle-Scarred",
}

// Item categories understood by the listings API.
const (
	CategoryAny      = 0
	CategoryNormal   = 1
	CategoryStatTrak = 2
	CategorySouvenir = 3
)

var SortOptions = []string{"most_recent", "lowest_price", "lowest_float"}

const DefaultLimit = 50

// SearchParams is one set of listings filters. The JSON field names match the
// API query parameters so the registry file reads like the requests it drives.
type SearchParams struct {
	MarketHashName string   `json:"market_hash_name,omitempty"`
	MinFloat       *float64 `json:"min_float,omitempty"`
	MaxFloat       *float64 `json:"max_float,omitempty"`
	Wear           string   `json:"wear,omitempty"`
	Category       int      `json:"category,omitempty"`
	SortBy         string   `json:"sort_by,omitempty"`
	BuyNowOnly     bool     `json:"buy_now_only,omitempty"`
	Limit          int      `json:"limit,omitempty"`
}

// Values encodes the parameters for the listings endpoint. A zero limit is
// replaced with DefaultLimit.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	if p.MarketHashName != "" {
		v.Set("market_hash_name", p.MarketHashName)
	}
	if p.MinFloat != nil {
		v.Set("min_float", strconv.FormatFloat(*p.MinFloat, 'f', -1, 64))
	}
	if p.MaxFloat != nil {
		v.Set("max_float", strconv.FormatFloat(*p.MaxFloat, 'f', -1, 64))
	}
	if p.Wear != "" {
		v.Set("wear", p.Wear)
	}
	if p.Category != CategoryAny {
		v.Set("category", strconv.Itoa(p.Category))
	}
	if p.SortBy != "" {
		v.Set("sort_by", p.SortBy)
	}
	if p.BuyNowOnly {
		v.Set("type", "buy_now")
	}
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	v.Set("limit", strconv.Itoa(limit))
	return v
}

// SearchKey derives the registry key for these parameters: the item name plus
// the wear code when one is set.
func (p SearchParams) SearchKey() string {
	name := p.MarketHashName
	if name == "" {
		name = "Unknown"
	}
	if p.Wear != "" {
		return fmt.Sprintf("%s (%s)", name, p.Wear)
	}
	return name
}

// ExpandWearName appends the full wear name to a market hash name, the way
// CSFloat spells item names. Names that already carry a parenthesized suffix
// are returned unchanged.
func ExpandWearName(name, wear string) string {
	full, ok := WearNames[wear]
	if !ok || strings.Contains(name, "(") {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, full)
}

// TrackedItem is one persisted tracking entry: the search it repeats plus the
// alerting window and notification dedup state. A nil Threshold means no
// price cap.
type TrackedItem struct {
	Params            SearchParams `json:"params"`
	TrackAlerts       bool         `json:"track_alerts"`
	TrackPrices       bool         `json:"track_prices"`
	Threshold         *float64     `json:"threshold,omitempty"`
	FloatMin          float64      `json:"float_min"`
	FloatMax          float64      `json:"float_max"`
	LastNotifiedPrice *float64     `json:"last_notified_price,omitempty"`
}

// Matches reports whether a listing falls inside the alert window. Listings
// without a numeric price or float value never match.
func (t TrackedItem) Matches(l Listing) bool {
	if l.PriceCents == nil || l.FloatValue == nil {
		return false
	}
	if t.Threshold != nil && l.Price() > *t.Threshold {
		return false
	}
	return *l.FloatValue >= t.FloatMin && *l.FloatValue <= t.FloatMax
}

// SearchRecord is one row of the search history store.
type SearchRecord struct {
	Timestamp time.Time
	Key       string
	Params    SearchParams
	Results   int
}

// Listing is one normalized marketplace listing.
type Listing struct {
	ID         string
	Name       string
	WearName   string
	FloatValue *float64
	PriceCents *int64
	IsAuction  bool
	TimeLeft   string
}

// Price returns the listing price in dollars. The API reports integer cents.
func (l Listing) Price() float64 {
	if l.PriceCents == nil {
		return 0
	}
	return float64(*l.PriceCents) / 100
}

// URL returns the public listing page, or empty when the ID is unknown.
func (l Listing) URL() string {
	if l.ID == "" {
		return ""
	}
	return "https://csfloat.com/item/" + l.ID
}

// looseString accepts a JSON string or number and keeps it as text. The API is
// not consistent about whether IDs and auction deadlines are quoted.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Unexpected shape (object, array); drop the value rather than
		// fail the whole listing.
		*s = ""
		return nil
	}
	*s = looseString(n.String())
	return nil
}

// listingPayload mirrors the wire shape of one listing, with every field the
// API has been seen using for auction status and remaining time.
type listingPayload struct {
	ID          looseString     `json:"id"`
	Price       *int64          `json:"price"`
	IsAuction   bool            `json:"is_auction"`
	Auction     json.RawMessage `json:"auction"`
	ListingType string          `json:"listing_type"`
	SaleType    string          `json:"sale_type"`
	Type        string          `json:"type"`

	TimeRemaining looseString `json:"time_remaining"`
	AuctionEndsIn looseString `json:"auction_ends_in"`
	AuctionEndsAt looseString `json:"auction_ends_at"`
	ExpiresAt     looseString `json:"expires_at"`

	Item struct {
		MarketHashName string `json:"market_hash_name"`
		WearName       string `json:"wear_name"`
	} `json:"item"`
	Float struct {
		FloatValue *float64 `json:"float_value"`
	} `json:"float"`
}

func (p listingPayload) normalize() Listing {
	l := Listing{
		ID:         string(p.ID),
		Name:       p.Item.MarketHashName,
		WearName:   p.Item.WearName,
		FloatValue: p.Float.FloatValue,
		PriceCents: p.Price,
	}
	l.IsAuction = p.IsAuction ||
		bytes.Equal(bytes.TrimSpace(p.Auction), []byte("true")) ||
		p.ListingType == "auction" ||
		p.SaleType == "auction" ||
		p.Type == "auction"
	for _, v := range []looseString{p.TimeRemaining, p.AuctionEndsIn, p.AuctionEndsAt, p.ExpiresAt} {
		if v != "" {
			l.TimeLeft = string(v)
			break
		}
	}
	return l
}

// DecodeListings normalizes a listings response body. The endpoint returns
// either a bare array or a wrapper object with the array under "data"; both
// shapes are accepted. A body that is neither yields an error.
func DecodeListings(body []byte) ([]Listing, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) > 0 && raw[0] == '{' {
		var wrapper struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse listings wrapper: %w", err)
		}
		if len(wrapper.Data) == 0 {
			return nil, nil
		}
		raw = wrapper.Data
	}

	var payloads []listingPayload
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, fmt.Errorf("failed to parse listings array: %w", err)
	}

	listings := make([]Listing, 0, len(payloads))
	for _, p := range payloads {
		listings = append(listings, p.normalize())
	}
	return listings, nil
}
