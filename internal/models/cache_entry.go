package models

import "time"

// CacheEntry backs cache.DatabaseStore, the fallback used when Redis is not
// configured. In this service its rows are almost exclusively rate-limit
// counters keyed by client IP and path; the maintenance job sweeps expired
// rows so the table stays small.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the entry's value is past its TTL. A zero
// ExpiresAt means the entry never expires.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e != nil && !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}
