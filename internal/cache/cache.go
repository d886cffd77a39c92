package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mkarpov-dev/fishcast/internal/store"
)

// entry is the persisted envelope around a cached value. Entries are written
// whole and never mutated in place; a refresh overwrites with a new entry.
type entry struct {
	Value     json.RawMessage `json:"value"`
	StoredAt  time.Time       `json:"storedAt"`
	TTLMillis int64           `json:"ttlMillis"`
	Rollover  bool            `json:"rollover,omitempty"`
}

// Cache is a versioned TTL cache over a KV blob store. Reads of expired or
// corrupt entries delete them and report a miss; they are never surfaced as
// errors to callers.
type Cache struct {
	kv  store.KV
	now func() time.Time
}

func New(kv store.KV) *Cache {
	return &Cache{kv: kv, now: time.Now}
}

// Get unmarshals the cached value for key into out and returns the entry's
// storedAt timestamp. A miss (absent, expired, or corrupt entry) returns a
// zero time and false.
func (c *Cache) Get(key string, out any) (time.Time, bool) {
	raw, ok, err := c.kv.Get(key)
	if err != nil {
		log.Printf("cache: read failed for %s: %v", key, err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		// Corrupt entries are treated as a miss, not an error.
		log.Printf("cache: corrupt entry for %s: %v", key, err)
		_ = c.kv.Delete(key)
		return time.Time{}, false
	}

	if c.expired(e) {
		_ = c.kv.Delete(key)
		return time.Time{}, false
	}

	if out != nil {
		if err := json.Unmarshal(e.Value, out); err != nil {
			log.Printf("cache: corrupt value for %s: %v", key, err)
			_ = c.kv.Delete(key)
			return time.Time{}, false
		}
	}
	return e.StoredAt, true
}

// Set stores value under key with the given TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) error {
	return c.set(key, value, ttl, false)
}

// SetWithRollover stores value under key with the given TTL and the
// calendar-rollover rule enabled: the entry additionally expires when read on
// the first day of a month after the month it was stored in.
func (c *Cache) SetWithRollover(key string, value any, ttl time.Duration) error {
	return c.set(key, value, ttl, true)
}

func (c *Cache) set(key string, value any, ttl time.Duration, rollover bool) error {
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal value for %s: %w", key, err)
	}
	e := entry{
		Value:     v,
		StoredAt:  c.now().UTC(),
		TTLMillis: ttl.Milliseconds(),
		Rollover:  rollover,
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache: marshal entry for %s: %w", key, err)
	}
	return c.kv.Put(key, raw)
}

// Delete removes the entry for key.
func (c *Cache) Delete(key string) {
	_ = c.kv.Delete(key)
}

// DeleteByPrefix removes every entry whose key starts with prefix. Used to
// prune exactly one superseded location's entries without a global flush.
func (c *Cache) DeleteByPrefix(prefix string) {
	if err := c.kv.DeleteByPrefix(prefix); err != nil {
		log.Printf("cache: prefix delete failed for %s: %v", prefix, err)
	}
}

// Sweep deletes every expired entry so dead rows do not accumulate between
// reads. Intended for periodic invocation by the scheduler.
func (c *Cache) Sweep() {
	keys, err := c.kv.Keys("")
	if err != nil {
		log.Printf("cache: sweep key listing failed: %v", err)
		return
	}

	removed := 0
	for _, key := range keys {
		raw, ok, err := c.kv.Get(key)
		if err != nil || !ok {
			continue
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil || c.expired(e) {
			_ = c.kv.Delete(key)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("cache: sweep removed %d expired entries", removed)
	}
}

func (c *Cache) expired(e entry) bool {
	now := c.now().UTC()

	if now.Sub(e.StoredAt) >= time.Duration(e.TTLMillis)*time.Millisecond {
		return true
	}

	// Calendar rollover: an opted-in entry read on day 1 of a month strictly
	// after its storedAt month is stale regardless of TTL. Day 2 onward the
	// rule does not apply.
	if e.Rollover && now.Day() == 1 {
		stored := e.StoredAt.UTC()
		if now.Year() > stored.Year() || (now.Year() == stored.Year() && now.Month() > stored.Month()) {
			return true
		}
	}
	return false
}

// KeySpec describes the parts of a versioned cache key. Bumping Version
// invalidates all previously stored entries without a migration step.
type KeySpec struct {
	Version  string
	Location string
	Region   string
	Bucket   string // month-year or calendar-day bucket
	Page     int    // 0 means no page component
}

func (k KeySpec) String() string {
	parts := []string{k.Version, k.Location}
	if k.Region != "" {
		parts = append(parts, k.Region)
	}
	if k.Bucket != "" {
		parts = append(parts, k.Bucket)
	}
	if k.Page > 0 {
		parts = append(parts, fmt.Sprintf("p%d", k.Page))
	}
	return strings.Join(parts, ":")
}

// LocationID returns the normalized location identifier used in cache keys:
// coordinates rounded to 3 decimal places plus the display name.
func LocationID(lat, lon float64, name string) string {
	return fmt.Sprintf("%.3f,%.3f,%s", lat, lon, strings.ToLower(strings.TrimSpace(name)))
}

// MonthBucket formats t as the month-year key component.
func MonthBucket(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// DayBucket formats t as the calendar-day key component used by day-scoped
// entries such as gear recommendations.
func DayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
