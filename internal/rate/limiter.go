// Package rate throttles outbound calls to the downstream platform services
// (fx, account, wallet, fee). Each service gets its own token bucket so a
// burst of quote traffic cannot starve account or wallet lookups.
package rate

import (
	"context"
	"sync"
	"time"
)

// Config defines the token bucket parameters applied to one downstream
// platform service.
type Config struct {
	RequestsPerSecond int
	Burst             int
	Cooldown          time.Duration
}

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	mu        sync.Mutex
	tokens    float64
	last      time.Time
	rate      float64
	burst     float64
	cooldown  time.Duration
	lastBlock time.Time
}

// New creates a new limiter.
func New(cfg Config) *Limiter {
	return &Limiter{
		tokens:   float64(cfg.Burst),
		last:     time.Now(),
		rate:     float64(cfg.RequestsPerSecond),
		burst:    float64(cfg.Burst),
		cooldown: cfg.Cooldown,
	}
}

func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	if l.tokens >= 1 {
		l.tokens -= 1
		return true
	}

	if l.cooldown > 0 {
		l.lastBlock = now
	}
	return false
}

// Wait blocks until a token becomes available or context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Manager holds one limiter per downstream service, created lazily from the
// default Config unless Configure installed a service-specific one.
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	defaults Config
}

func NewManager(defaults Config) *Manager {
	return &Manager{
		limiters: make(map[string]*Limiter),
		defaults: defaults,
	}
}

// Configure installs a service-specific limiter, replacing any existing one.
// Call before traffic starts; the limiter's bucket state resets.
func (m *Manager) Configure(serviceKey string, cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[serviceKey] = New(cfg)
}

func (m *Manager) GetLimiter(serviceKey string) *Limiter {
	m.mu.RLock()
	if lim, ok := m.limiters[serviceKey]; ok {
		m.mu.RUnlock()
		return lim
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if lim, ok := m.limiters[serviceKey]; ok {
		return lim
	}
	lim := New(m.defaults)
	m.limiters[serviceKey] = lim
	return lim
}

// Wait ensures rate limit compliance for a given service key.
func (m *Manager) Wait(ctx context.Context, key string) error {
	lim := m.GetLimiter(key)
	return lim.Wait(ctx)
}
