package application

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// slotCache keeps recent free slot listings per booking window so repeated
// page loads do not hit the store. Any slot mutation in this process calls
// Invalidate; listings from other processes may be up to ttl old, which the
// reservation re-check tolerates.
type slotCache struct {
	now     func() time.Time
	ttl     time.Duration
	entries *lru.Cache[int, slotCacheEntry]
}

type slotCacheEntry struct {
	slots     []Slot
	expiresAt time.Time
}

func newSlotCache(ttl time.Duration, maxEntries int, now func() time.Time) *slotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 16
	}
	if now == nil {
		now = time.Now
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[int, slotCacheEntry](maxEntries)
	return &slotCache{now: now, ttl: ttl, entries: entries}
}

// Get returns the cached listing for windowWeeks, dropping slots that have
// started since it was stored.
func (c *slotCache) Get(windowWeeks int) ([]Slot, bool) {
	if c == nil {
		return nil, false
	}
	entry, ok := c.entries.Get(windowWeeks)
	if !ok {
		return nil, false
	}
	now := c.now()
	if now.After(entry.expiresAt) {
		c.entries.Remove(windowWeeks)
		return nil, false
	}

	out := make([]Slot, 0, len(entry.slots))
	for _, slot := range entry.slots {
		if slot.Start.After(now) {
			out = append(out, slot)
		}
	}
	return out, true
}

func (c *slotCache) Store(windowWeeks int, slots []Slot) {
	if c == nil {
		return
	}
	cloned := make([]Slot, len(slots))
	copy(cloned, slots)
	c.entries.Add(windowWeeks, slotCacheEntry{slots: cloned, expiresAt: c.now().Add(c.ttl)})
}

func (c *slotCache) Invalidate() {
	if c == nil {
		return
	}
	c.entries.Purge()
}
