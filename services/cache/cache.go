package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"stock_recommendation_backend/models"
)

// Cache TTL policy: refresh fast while the market is moving, relax after hours
const (
	MarketHoursTTL = 5 * time.Minute
	OffHoursTTL    = 1 * time.Hour
	cleanupPeriod  = 10 * time.Minute
)

// Fingerprint returns a deterministic cache key for a request. Any change to
// strategy, catalog version or tuning parameters produces a different key.
func Fingerprint(strategy models.Strategy, catalogVersion string, limitPerQuery, topN int, minScore float64) string {
	canonical := fmt.Sprintf("%s|%s|%d|%d|%.4f", strategy, catalogVersion, limitPerQuery, topN, minScore)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	batch     *models.RecommendationBatch
	expiresAt time.Time
}

// BatchCache stores recommendation batches keyed by request fingerprint.
// Last write wins per fingerprint; no cross-key coordination is needed.
type BatchCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	stop    chan struct{}
}

// NewBatchCache creates a cache and starts its background cleanup
func NewBatchCache() *BatchCache {
	c := &BatchCache{
		entries: make(map[string]entry),
		stop:    make(chan struct{}),
	}
	go c.startCleanup()
	return c
}

// Get returns the cached batch for a fingerprint, or nil when absent/expired
func (c *BatchCache) Get(fingerprint string) *models.RecommendationBatch {
	c.mu.RLock()
	e, ok := c.entries[fingerprint]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil
	}
	return e.batch
}

// Put stores a batch under a fingerprint with the given TTL
func (c *BatchCache) Put(fingerprint string, batch *models.RecommendationBatch, ttl time.Duration) {
	c.mu.Lock()
	c.entries[fingerprint] = entry{
		batch:     batch,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
}

// Len returns the number of live entries
func (c *BatchCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	now := time.Now()
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Close stops the cleanup goroutine
func (c *BatchCache) Close() {
	close(c.stop)
}

func (c *BatchCache) startCleanup() {
	ticker := time.NewTicker(cleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *BatchCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// TTLFor returns the cache TTL appropriate for the given instant
func TTLFor(now time.Time) time.Duration {
	if IsMarketOpen(now) {
		return MarketHoursTTL
	}
	return OffHoursTTL
}

// IsMarketOpen checks if NSE is in its regular session (9:15-15:30 IST,
// Monday to Friday). Exchange holidays are not tracked; a holiday just means
// one unnecessary short-TTL window.
func IsMarketOpen(now time.Time) bool {
	ist := now.In(istLocation())

	if ist.Weekday() == time.Saturday || ist.Weekday() == time.Sunday {
		return false
	}

	minutes := ist.Hour()*60 + ist.Minute()
	open := 9*60 + 15
	close := 15*60 + 30
	return minutes >= open && minutes < close
}

func istLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}
