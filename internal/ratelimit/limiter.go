package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const staleAfter = 10 * time.Minute

// PerSender applies a token-bucket limit to each WhatsApp contact so one
// chatty sender cannot monopolise the LLM backend.
type PerSender struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewPerSender allows perMinute messages per contact with the given burst.
func NewPerSender(perMinute, burst int) *PerSender {
	if perMinute <= 0 {
		perMinute = 20
	}
	if burst <= 0 {
		burst = 1
	}
	return &PerSender{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
	}
}

// Allow reports whether the contact may send another message now.
func (p *PerSender) Allow(waID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[waID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.buckets[waID] = b
		p.evictStaleLocked()
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// evictStaleLocked drops buckets idle for longer than staleAfter. Called on
// the insert path so the map stays bounded without a background goroutine.
func (p *PerSender) evictStaleLocked() {
	cutoff := time.Now().Add(-staleAfter)
	for id, b := range p.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(p.buckets, id)
		}
	}
}

// ActiveSenders returns the number of tracked contacts.
func (p *PerSender) ActiveSenders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets)
}
