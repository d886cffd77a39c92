package locwatch

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkarpov-dev/fishcast/internal/cache"
	"github.com/mkarpov-dev/fishcast/internal/forecast"
)

// LocationPoint identifies a spot the user is looking at. Points are replaced
// wholesale on every change, never patched.
type LocationPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`

	// Region is the derived region/sea name carried into cache keys. It does
	// not participate in location identity.
	Region string `json:"region,omitempty"`
}

// ID returns the normalized cache identity: coordinates rounded to 3 decimal
// places plus the name.
func (l LocationPoint) ID() string {
	return cache.LocationID(l.Latitude, l.Longitude, l.Name)
}

// Same reports whether two points share the same rounded identity.
func Same(a, b LocationPoint) bool {
	return round3(a.Latitude) == round3(b.Latitude) &&
		round3(a.Longitude) == round3(b.Longitude) &&
		a.Name == b.Name
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// FetchFunc produces a forecast bundle for a location.
type FetchFunc func(ctx context.Context, loc LocationPoint) (*forecast.Bundle, error)

const keyVersion = "v1"

// cachedBundle is what the watcher persists per location. The location rides
// along so a fresh-cache read can verify it belongs to the same coordinates.
type cachedBundle struct {
	Location LocationPoint    `json:"location"`
	Bundle   *forecast.Bundle `json:"bundle"`
}

// Watcher debounces location changes, coalesces redundant fetches against the
// cache, and guarantees that only the most-recently-issued token's result is
// ever committed to shared state. Results from superseded tokens are dropped
// silently.
type Watcher struct {
	fetch       FetchFunc
	cache       *cache.Cache
	debounce    time.Duration
	freshWindow time.Duration
	ttl         time.Duration

	mu            sync.Mutex
	current       *LocationPoint
	bundle        *forecast.Bundle
	token         string
	cancel        context.CancelFunc
	lastFetchedAt time.Time

	now func() time.Time
}

// Options tunes the watcher; zero values get defaults.
type Options struct {
	Debounce    time.Duration // default 200ms
	FreshWindow time.Duration // default 5m
	TTL         time.Duration // default 1h
}

func New(fetch FetchFunc, c *cache.Cache, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	if opts.FreshWindow <= 0 {
		opts.FreshWindow = 5 * time.Minute
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	return &Watcher{
		fetch:       fetch,
		cache:       c,
		debounce:    opts.Debounce,
		freshWindow: opts.FreshWindow,
		ttl:         opts.TTL,
		now:         time.Now,
	}
}

// Update reacts to a new location. Identical rounded identity is a no-op;
// otherwise the previous in-flight work is cancelled, the change is
// debounced, and a fetch runs under a fresh token.
func (w *Watcher) Update(loc LocationPoint) {
	w.mu.Lock()
	if w.current != nil && Same(*w.current, loc) {
		w.mu.Unlock()
		return
	}

	if w.cancel != nil {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.token = uuid.NewString()
	token := w.token

	var prev *LocationPoint
	if w.current != nil {
		p := *w.current
		prev = &p
	}
	w.current = &loc
	w.mu.Unlock()

	go w.run(ctx, token, loc, prev, false)
}

// Refresh re-fetches the current location under a new token, bypassing the
// fresh-cache short circuit. Used by the periodic scheduler.
func (w *Watcher) Refresh() {
	w.mu.Lock()
	if w.current == nil {
		w.mu.Unlock()
		return
	}
	loc := *w.current

	if w.cancel != nil {
		w.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.token = uuid.NewString()
	token := w.token
	w.mu.Unlock()

	go w.run(ctx, token, loc, nil, true)
}

func (w *Watcher) run(ctx context.Context, token string, loc LocationPoint, prev *LocationPoint, skipCache bool) {
	// Debounce: absorb rapid successive changes before doing any work.
	timer := time.NewTimer(w.debounce)
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C:
	}

	key := w.bundleKey(loc)

	if !skipCache {
		var cached cachedBundle
		if storedAt, ok := w.cache.Get(key, &cached); ok {
			if w.now().Sub(storedAt) < w.freshWindow && Same(cached.Location, loc) {
				w.commit(token, cached.Bundle)
				return
			}
		}
	}

	// Prune exactly the superseded location's entries, not a global flush.
	if prev != nil && !Same(*prev, loc) {
		w.cache.DeleteByPrefix(locationPrefix(*prev))
	}

	bundle, err := w.fetch(ctx, loc)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("locwatch: fetch failed for %s: %v", loc.ID(), err)
		}
		// Keep the last good bundle; do not overwrite shared state.
		return
	}

	if !w.commit(token, bundle) {
		// A newer token superseded this fetch; drop the result silently.
		return
	}
	if err := w.cache.SetWithRollover(key, cachedBundle{Location: loc, Bundle: bundle}, w.ttl); err != nil {
		log.Printf("locwatch: cache write failed for %s: %v", key, err)
	}
}

// commit installs the bundle only if token is still the most recent.
func (w *Watcher) commit(token string, b *forecast.Bundle) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if token != w.token {
		return false
	}
	w.bundle = b
	w.lastFetchedAt = w.now()
	return true
}

// Current returns the active location and the last committed bundle.
func (w *Watcher) Current() (*LocationPoint, *forecast.Bundle, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.current, w.bundle, w.lastFetchedAt
}

func (w *Watcher) bundleKey(loc LocationPoint) string {
	return cache.KeySpec{
		Version:  keyVersion,
		Location: loc.ID(),
		Region:   strings.ToLower(strings.TrimSpace(loc.Region)),
		Bucket:   cache.MonthBucket(w.now()),
	}.String()
}

func locationPrefix(loc LocationPoint) string {
	return fmt.Sprintf("%s:%s", keyVersion, loc.ID())
}
