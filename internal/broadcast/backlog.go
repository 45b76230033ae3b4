package broadcast

import (
	"sync"
	"time"
)

// backlogEntry is one retained message for a subscription key.
type backlogEntry struct {
	message    []byte
	enqueuedAt time.Time
}

// backlog retains messages published before a subscriber attached. Bounded
// per key and time-limited; drained FIFO exactly once on first subscribe.
type backlog struct {
	mu      sync.Mutex
	entries map[string][]backlogEntry
	perKey  int
	ttl     time.Duration
	now     func() time.Time
}

func newBacklog(perKey int, ttl time.Duration) *backlog {
	if perKey <= 0 {
		perKey = 50
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &backlog{
		entries: make(map[string][]backlogEntry),
		perKey:  perKey,
		ttl:     ttl,
		now:     time.Now,
	}
}

// append retains a message for key, evicting the oldest entry when the
// per-key bound is hit. Returns the resulting depth for this key.
func (b *backlog) append(key string, message []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.pruneLocked(key)
	entries = append(entries, backlogEntry{message: message, enqueuedAt: b.now()})
	if len(entries) > b.perKey {
		entries = entries[len(entries)-b.perKey:]
	}
	b.entries[key] = entries
	return len(entries)
}

// drain removes and returns all live messages for key in enqueue order.
func (b *backlog) drain(key string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.pruneLocked(key)
	if len(entries) == 0 {
		delete(b.entries, key)
		return nil
	}

	messages := make([][]byte, len(entries))
	for i, e := range entries {
		messages[i] = e.message
	}
	delete(b.entries, key)
	return messages
}

// depth returns the number of live messages retained for key.
func (b *backlog) depth(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pruneLocked(key))
}

// pruneLocked drops expired entries for key; caller holds the lock.
func (b *backlog) pruneLocked(key string) []backlogEntry {
	entries := b.entries[key]
	cutoff := b.now().Add(-b.ttl)

	i := 0
	for i < len(entries) && entries[i].enqueuedAt.Before(cutoff) {
		i++
	}
	if i > 0 {
		entries = entries[i:]
		b.entries[key] = entries
	}
	return entries
}
