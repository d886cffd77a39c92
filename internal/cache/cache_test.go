package cache

import (
	"testing"
	"time"

	"github.com/mkarpov-dev/fishcast/internal/store"
)

func newTestCache(now time.Time) (*Cache, *store.MemoryKV, *time.Time) {
	kv := store.NewMemoryKV()
	c := New(kv)
	current := now
	c.now = func() time.Time { return current }
	return c, kv, &current
}

func TestGetAfterSetReturnsValue(t *testing.T) {
	c, _, _ := newTestCache(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))

	if err := c.Set("k", "hello", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var got string
	if _, ok := c.Get("k", &got); !ok {
		t.Fatal("expected a hit immediately after set")
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestExpiredEntryIsDeletedAndStaysGone(t *testing.T) {
	c, kv, now := newTestCache(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))

	if err := c.Set("k", 42, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	*now = now.Add(2 * time.Minute)

	var got int
	if _, ok := c.Get("k", &got); ok {
		t.Fatal("expected a miss after TTL elapsed")
	}

	// The expired read must have deleted the entry.
	if _, present, _ := kv.Get("k"); present {
		t.Error("expired entry was not deleted from the store")
	}

	// A later read must not resurrect it.
	if _, ok := c.Get("k", &got); ok {
		t.Error("expired entry was resurrected")
	}
}

func TestCalendarRollover(t *testing.T) {
	stored := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	longTTL := 90 * 24 * time.Hour

	t.Run("day one of next month expires", func(t *testing.T) {
		c, _, now := newTestCache(stored)
		if err := c.SetWithRollover("k", "v", longTTL); err != nil {
			t.Fatalf("set failed: %v", err)
		}

		*now = time.Date(2026, 9, 1, 0, 30, 0, 0, time.UTC)
		if _, ok := c.Get("k", nil); ok {
			t.Error("expected rollover expiry on day 1 of the following month")
		}
	})

	t.Run("day two of next month unaffected", func(t *testing.T) {
		c, _, now := newTestCache(stored)
		if err := c.SetWithRollover("k", "v", longTTL); err != nil {
			t.Fatalf("set failed: %v", err)
		}

		*now = time.Date(2026, 9, 2, 0, 30, 0, 0, time.UTC)
		if _, ok := c.Get("k", nil); !ok {
			t.Error("rollover rule must only apply on day 1")
		}
	})

	t.Run("rule off for plain Set", func(t *testing.T) {
		c, _, now := newTestCache(stored)
		if err := c.Set("k", "v", longTTL); err != nil {
			t.Fatalf("set failed: %v", err)
		}

		*now = time.Date(2026, 9, 1, 0, 30, 0, 0, time.UTC)
		if _, ok := c.Get("k", nil); !ok {
			t.Error("entries without rollover must only honor TTL")
		}
	})
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	c, kv, _ := newTestCache(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))

	if err := kv.Put("k", []byte("not json at all")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if _, ok := c.Get("k", nil); ok {
		t.Fatal("corrupt entry must be a miss, not a hit")
	}
	if _, present, _ := kv.Get("k"); present {
		t.Error("corrupt entry was not deleted")
	}
}

func TestDeleteByPrefixScopesToOneLocation(t *testing.T) {
	c, _, _ := newTestCache(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))

	locA := LocationID(38.7, -9.4, "Cascais")
	locB := LocationID(41.1, -8.7, "Porto")

	keyA := KeySpec{Version: "v1", Location: locA, Bucket: "2026-08"}.String()
	keyB := KeySpec{Version: "v1", Location: locB, Bucket: "2026-08"}.String()

	c.Set(keyA, "a", time.Hour)
	c.Set(keyB, "b", time.Hour)

	c.DeleteByPrefix("v1:" + locA)

	if _, ok := c.Get(keyA, nil); ok {
		t.Error("location A entries should be pruned")
	}
	if _, ok := c.Get(keyB, nil); !ok {
		t.Error("location B entries must survive a prune of location A")
	}
}

func TestKeyVersionBumpInvalidates(t *testing.T) {
	loc := LocationID(38.7, -9.4, "Cascais")
	v1 := KeySpec{Version: "v1", Location: loc, Bucket: "2026-08"}.String()
	v2 := KeySpec{Version: "v2", Location: loc, Bucket: "2026-08"}.String()

	if v1 == v2 {
		t.Fatal("version bump must change the key")
	}

	c, _, _ := newTestCache(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))
	c.Set(v1, "old", time.Hour)
	if _, ok := c.Get(v2, nil); ok {
		t.Error("new-version key must not read old-version entries")
	}
}

func TestSweepRemovesExpiredEntries(t *testing.T) {
	c, kv, now := newTestCache(time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC))

	c.Set("old", 1, time.Minute)
	c.Set("fresh", 2, time.Hour)

	*now = now.Add(10 * time.Minute)
	c.Sweep()

	if _, present, _ := kv.Get("old"); present {
		t.Error("sweep should remove expired entries")
	}
	if _, present, _ := kv.Get("fresh"); !present {
		t.Error("sweep must keep live entries")
	}
}

func TestLocationIDRounding(t *testing.T) {
	a := LocationID(38.70012, -9.40049, "Cascais")
	b := LocationID(38.70031, -9.40021, "Cascais")
	if a != b {
		t.Errorf("identities should match after 3-decimal rounding: %q vs %q", a, b)
	}
}
