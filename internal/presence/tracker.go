// Package presence tracks per-user last-seen timestamps behind a single
// owning tracker, safe for unsynchronized concurrent callers.
package presence

import (
	"sync"
	"time"
)

// Tracker owns the last-seen map. All access goes through its methods.
type Tracker struct {
	mu       sync.RWMutex
	lastSeen map[string]time.Time
	now      func() time.Time
}

// NewTracker creates an empty presence tracker.
func NewTracker() *Tracker {
	return &Tracker{
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Touch marks the user as seen now.
func (t *Tracker) Touch(userID string) {
	now := t.now()
	t.mu.Lock()
	t.lastSeen[userID] = now
	t.mu.Unlock()
}

// LastSeen returns the user's last-seen time, or false if never seen.
func (t *Tracker) LastSeen(userID string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ts, ok := t.lastSeen[userID]
	return ts, ok
}

// Online reports whether the user was seen within the given window.
func (t *Tracker) Online(userID string, window time.Duration) bool {
	ts, ok := t.LastSeen(userID)
	if !ok {
		return false
	}
	return t.now().Sub(ts) <= window
}

// ActiveSince returns the ids of users seen at or after the cutoff.
func (t *Tracker) ActiveSince(cutoff time.Time) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var ids []string
	for id, ts := range t.lastSeen {
		if !ts.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Prune drops entries older than the cutoff and returns how many were
// removed. Keeps the map bounded on long-running processes.
func (t *Tracker) Prune(cutoff time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, ts := range t.lastSeen {
		if ts.Before(cutoff) {
			delete(t.lastSeen, id)
			removed++
		}
	}
	return removed
}
