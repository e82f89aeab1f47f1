// Package ratelimit throttles expensive endpoints per client address.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// window tracks one client's budget inside a fixed one-minute window.
type window struct {
	opened time.Time
	used   int
}

// Limiter is a fixed-window per-client limiter. Rejected requests do not
// count against the budget and do not move the window.
type Limiter struct {
	limit  int
	span   time.Duration
	sweep  time.Duration
	now    func() time.Time
	done   chan struct{}
	closer sync.Once

	mu      sync.Mutex
	windows map[string]*window

	rejected atomic.Int64
}

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{RequestsPerMinute: 60, CleanupInterval: 5 * time.Minute}
}

// NewLimiter starts a limiter and its background sweeper. Zero fields in
// config fall back to DefaultConfig.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		limit:   config.RequestsPerMinute,
		span:    time.Minute,
		sweep:   config.CleanupInterval,
		now:     time.Now,
		done:    make(chan struct{}),
		windows: make(map[string]*window),
	}
	go l.sweepLoop()
	return l
}

// admit consumes one unit of the client's budget. When the budget is spent
// it reports how long until the window reopens.
func (l *Limiter) admit(client string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[client]
	if w == nil || now.Sub(w.opened) >= l.span {
		l.windows[client] = &window{opened: now, used: 1}
		return true, 0
	}
	if w.used < l.limit {
		w.used++
		return true, 0
	}
	l.rejected.Add(1)
	return false, l.span - now.Sub(w.opened)
}

// Allow reports whether client may make another request now.
func (l *Limiter) Allow(client string) bool {
	ok, _ := l.admit(client)
	return ok
}

// RetryAfter returns how long client has to wait for a fresh window.
func (l *Limiter) RetryAfter(client string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[client]
	if w == nil {
		return 0
	}
	return max(l.span-l.now().Sub(w.opened), 0)
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(l.sweep)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.cleanupStaleEntries()
		}
	}
}

// cleanupStaleEntries forgets clients idle for ten windows.
func (l *Limiter) cleanupStaleEntries() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-10 * l.span)
	for client, w := range l.windows {
		if w.opened.Before(cutoff) {
			delete(l.windows, client)
		}
	}
}

func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Stop ends the sweeper. It may be called more than once.
func (l *Limiter) Stop() {
	l.closer.Do(func() { close(l.done) })
}

type Metrics struct {
	Rejected    int64
	ClientCount int64
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		Rejected:    l.rejected.Load(),
		ClientCount: int64(l.ActiveClients()),
	}
}

// Middleware rejects clients over budget. A Retry-After header in whole
// seconds is set before onLimit writes the body; a nil onLimit sends a plain
// 429.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.admit(extractIP(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			secs := max(int(math.Ceil(wait.Seconds())), 1)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			if onLimit == nil {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			onLimit(w, r)
		})
	}
}
