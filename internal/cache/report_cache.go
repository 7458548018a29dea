package cache

import (
	"sync"
	"time"

	"gitlab.com/aqarsync/api/contact-identity-service/internal/model"
)

// ReportCache keeps the most recent deduplication report per company for a
// bounded time, so the frontend can fetch the outcome of a run it triggered
// over NATS without the service persisting reports.
type ReportCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]reportEntry
}

type reportEntry struct {
	report    *model.DedupReport
	expiresAt time.Time
}

// NewReportCache creates a cache whose entries expire after ttl. A zero or
// negative ttl keeps entries for one hour.
func NewReportCache(ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReportCache{
		ttl:     ttl,
		entries: make(map[string]reportEntry),
	}
}

// Put stores the company's latest report, replacing any previous one.
func (c *ReportCache) Put(companyID string, report *model.DedupReport) {
	if report == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[companyID] = reportEntry{
		report:    report,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// Get returns the company's latest report, or false when none is stored or
// the stored one has expired. Expired entries are dropped on read.
func (c *ReportCache) Get(companyID string) (*model.DedupReport, bool) {
	c.mu.RLock()
	entry, ok := c.entries[companyID]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresh Put may have raced the expiry.
		if current, still := c.entries[companyID]; still && time.Now().After(current.expiresAt) {
			delete(c.entries, companyID)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.report, true
}

// Len reports how many unexpired entries the cache currently holds.
func (c *ReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := time.Now()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}
