package security

import (
	"sync"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// AnonymousSource keys the rate limiter for events emitted without a source.
const AnonymousSource = "anonymous"

// sourceLimiter keeps one token bucket per emitting source.
type sourceLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	clock    clock.Clock
	limiters map[string]*rate.Limiter
}

func newSourceLimiter(clk clock.Clock) *sourceLimiter {
	return &sourceLimiter{
		limit:    rate.Inf,
		clock:    clk,
		limiters: make(map[string]*rate.Limiter),
	}
}

// configure replaces the limit. perSecond <= 0 disables limiting.
// Existing buckets are discarded.
func (l *sourceLimiter) configure(perSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if perSecond <= 0 {
		l.limit = rate.Inf
		l.burst = 0
	} else {
		l.limit = rate.Limit(perSecond)
		l.burst = max(burst, 1)
	}
	l.limiters = make(map[string]*rate.Limiter)
}

func (l *sourceLimiter) enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit != rate.Inf
}

// allow consumes one token for source.
func (l *sourceLimiter) allow(source string) bool {
	if source == "" {
		source = AnonymousSource
	}

	l.mu.Lock()
	if l.limit == rate.Inf {
		l.mu.Unlock()
		return true
	}
	lim, ok := l.limiters[source]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[source] = lim
	}
	l.mu.Unlock()

	return lim.AllowN(l.clock.Now(), 1)
}

// settings returns the configured rate and burst; zero rate means disabled.
func (l *sourceLimiter) settings() (float64, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit == rate.Inf {
		return 0, 0
	}
	return float64(l.limit), l.burst
}
