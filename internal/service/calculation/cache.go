package calculation

import (
	"sync"
	"time"
)

const cacheDateLayout = "2006-01-02"

type cacheKey struct {
	cattleID int64
	date     string
}

type cacheEntry struct {
	result    Result
	expiresAt time.Time
}

// ResultCache keeps calculation results per animal and calendar day. An entry
// is served only on the day it was computed and before its TTL runs out.
type ResultCache struct {
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	loc     *time.Location
	mu      sync.RWMutex
}

// NewResultCache creates an empty cache. Calendar days are evaluated in loc.
func NewResultCache(ttl time.Duration, loc *time.Location) *ResultCache {
	if loc == nil {
		loc = time.UTC
	}
	return &ResultCache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
		loc:     loc,
	}
}

func (c *ResultCache) keyFor(cattleID int64, ref time.Time) cacheKey {
	return cacheKey{cattleID: cattleID, date: ref.In(c.loc).Format(cacheDateLayout)}
}

// Get returns the entry computed for the animal on ref's calendar day, if it
// has not expired by now.
func (c *ResultCache) Get(cattleID int64, ref, now time.Time) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[c.keyFor(cattleID, ref)]
	if !ok || !now.Before(entry.expiresAt) {
		return Result{}, false
	}
	return entry.result, true
}

// Put stores result for the animal and ref's calendar day. The entry expires
// at the end of that day or after the TTL, whichever comes first.
func (c *ResultCache) Put(cattleID int64, ref time.Time, result Result, now time.Time) {
	expiresAt := now.Add(c.ttl)
	if endOfDay := c.endOfDay(ref); endOfDay.Before(expiresAt) {
		expiresAt = endOfDay
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.keyFor(cattleID, ref)] = cacheEntry{result: result, expiresAt: expiresAt}
}

// Clear removes every entry.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cacheEntry)
}

// ClearCattle removes every entry of one animal.
func (c *ResultCache) ClearCattle(cattleID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.cattleID == cattleID {
			delete(c.entries, key)
		}
	}
}

// Sweep drops expired entries and returns how many were removed.
func (c *ResultCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *ResultCache) endOfDay(ref time.Time) time.Time {
	local := ref.In(c.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, c.loc)
}
