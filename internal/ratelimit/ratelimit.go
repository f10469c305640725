// Package ratelimit defines the injected rate-limit capability. The broker
// core only knows the Check contract; whether the counters live in-process or
// in a shared store is the deployment's choice.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Result struct {
	Limited   bool
	Remaining int
}

type Limiter interface {
	Check(key string, limit int, window time.Duration) Result
}

// InProcess keys token buckets by string and sweeps buckets not seen for ttl.
// Suitable for a single server instance.
type InProcess struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*bucket
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewInProcess(ttl time.Duration) *InProcess {
	return &InProcess{
		ttl:     ttl,
		entries: make(map[string]*bucket),
	}
}

func (p *InProcess) Check(key string, limit int, window time.Duration) Result {
	now := time.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.entries[key]
	if b == nil {
		b = &bucket{
			lim: rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit),
		}
		p.entries[key] = b
	}
	b.lastSeen = now

	for k, v := range p.entries {
		if now.Sub(v.lastSeen) > p.ttl {
			delete(p.entries, k)
		}
	}

	allowed := b.lim.Allow()
	remaining := int(b.lim.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return Result{Limited: !allowed, Remaining: remaining}
}
