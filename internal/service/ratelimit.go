package service

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// phoneLimiter rate-limits OTP sends per phone number. Entries idle for
// twice the cleanup interval are dropped.
type phoneLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	limit    rate.Limit
	burst    int
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newPhoneLimiter(perMinute float64, burst int, cleanupInterval time.Duration) *phoneLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &phoneLimiter{
		limiters: make(map[string]*keyLimiter),
		limit:    rate.Limit(perMinute / 60.0),
		burst:    burst,
		interval: cleanupInterval,
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// allow consumes a token for key. When refused it returns the seconds until
// the next token.
func (l *phoneLimiter) allow(key string) (bool, int) {
	l.mu.Lock()
	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[key] = kl
	}
	kl.lastAccess = time.Now()
	l.mu.Unlock()

	if kl.limiter.Allow() {
		return true, 0
	}
	return false, l.retryAfter()
}

func (l *phoneLimiter) retryAfter() int {
	if l.limit <= 0 {
		return 60
	}
	sec := int(math.Ceil(1.0 / float64(l.limit)))
	if sec < 1 {
		sec = 1
	}
	return sec
}

func (l *phoneLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *phoneLimiter) stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

func (l *phoneLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *phoneLimiter) cleanup() {
	ttl := l.interval * 2
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, kl := range l.limiters {
		if now.Sub(kl.lastAccess) > ttl {
			delete(l.limiters, key)
		}
	}
}
