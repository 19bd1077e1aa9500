// Package dedup keeps a short-lived ledger of idempotency keys already seen
// on the callback path, so a redelivered completion event does not produce a
// second reply. The ledger is per-process; the external service's own
// deduplication remains the primary guard.
package dedup

import (
	"sync"
	"time"
)

// DefaultTTL is how long a seen key is retained.
const DefaultTTL = 24 * time.Hour

// Ledger is a mutex-guarded TTL set of idempotency keys.
type Ledger struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time // key -> expiry
}

// NewLedger builds an empty ledger. A non-positive ttl falls back to DefaultTTL.
func NewLedger(ttl time.Duration) *Ledger {
	return newLedger(ttl, time.Now)
}

func newLedger(ttl time.Duration, now func() time.Time) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{ttl: ttl, now: now, seen: make(map[string]time.Time)}
}

// FirstDelivery records the key and reports whether this is the first
// unexpired delivery for it. Expired entries count as first deliveries and
// are re-armed. An empty key is never deduplicated.
func (l *Ledger) FirstDelivery(key string) bool {
	if key == "" {
		return true
	}

	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, ok := l.seen[key]
	l.seen[key] = now.Add(l.ttl)
	if ok && now.Before(expiry) {
		return false
	}
	return true
}

// Forget drops the key so a later delivery counts as first again. Used to
// roll back a reservation when acting on the event failed.
func (l *Ledger) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, key)
}

// Cleanup drops expired entries and returns how many were removed.
func (l *Ledger) Cleanup() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, expiry := range l.seen {
		if now.Before(expiry) {
			continue
		}
		delete(l.seen, key)
		removed++
	}
	return removed
}

// Len reports the number of retained entries, expired or not.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
