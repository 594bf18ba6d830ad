package ratelimit

import (
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultCeiling is assumed until a response header says otherwise.
	DefaultCeiling = 60

	// FallbackInterval is the safe delay when no usable ceiling is known.
	FallbackInterval = 6 * time.Second

	window = time.Minute
)

// Tracker keeps a sliding one-minute window of request timestamps and the
// most recently declared requests-per-minute ceiling. CSFloat does not
// document its limit reliably; it has to be learned from response headers and
// adapted to at runtime. One Tracker is shared by everything that talks to
// the API.
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	times   []time.Time
	ceiling int
}

// New creates a tracker with the default ceiling.
func New() *Tracker {
	return &Tracker{
		now:     time.Now,
		ceiling: DefaultCeiling,
	}
}

// RecordRequest appends the current time to the window and drops entries
// older than one minute.
func (t *Tracker) RecordRequest() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.times = append(t.times, now)
	t.prune(now)
}

func (t *Tracker) prune(now time.Time) {
	cut := 0
	for cut < len(t.times) && now.Sub(t.times[cut]) > window {
		cut++
	}
	t.times = t.times[cut:]
}

// UpdateCeiling replaces the stored ceiling when the declared value parses to
// a positive integer. Anything else leaves the ceiling unchanged.
func (t *Tracker) UpdateCeiling(declared string) {
	limit, err := strconv.Atoi(declared)
	if err != nil || limit <= 0 {
		return
	}

	t.mu.Lock()
	t.ceiling = limit
	t.mu.Unlock()
}

// Ceiling returns the currently known requests-per-minute ceiling.
func (t *Tracker) Ceiling() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ceiling
}

// CurrentRate counts requests issued within the trailing minute. Diagnostics
// only; nothing throttles on it.
func (t *Tracker) CurrentRate() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(t.now())
	return len(t.times)
}

// MinInterval returns the minimum safe delay between requests: one minute
// divided by the ceiling, or FallbackInterval when the ceiling is unusable.
// Callers issuing tight request sequences sleep this long between requests.
func (t *Tracker) MinInterval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ceiling <= 0 {
		return FallbackInterval
	}
	return window / time.Duration(t.ceiling)
}
