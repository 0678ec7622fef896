package handlers

import (
	"sync"
	"time"
)

const (
	dedupWindow  = time.Hour
	dedupMaxSize = 1000
)

// messageDedup remembers recently processed message IDs. Meta redelivers a
// webhook whenever the previous attempt was not acknowledged fast enough, and
// replying to the same message twice reads as a glitch to the contact.
type messageDedup struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newMessageDedup() *messageDedup {
	return &messageDedup{seen: make(map[string]time.Time)}
}

// Seen marks the ID and reports whether it was already recorded inside the
// window.
func (d *messageDedup) Seen(messageID string) bool {
	if messageID == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if at, ok := d.seen[messageID]; ok && now.Sub(at) < dedupWindow {
		return true
	}
	d.seen[messageID] = now

	if len(d.seen) > dedupMaxSize {
		cutoff := now.Add(-dedupWindow)
		for id, at := range d.seen {
			if at.Before(cutoff) {
				delete(d.seen, id)
			}
		}
	}

	return false
}
