package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache is a keyed store of computed reports.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner drops expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Purger drops every entry.
type Purger interface {
	Purge()
}

// Store is what the Manager needs from a registered cache.
type Store interface {
	Cleaner
	Purger
}

// Manager handles cache lifecycle: periodic cleanup and dataset-wide purges.
type Manager struct {
	mu          sync.Mutex
	caches      []Store
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager.
func (m *Manager) Register(c Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// PurgeAll empties every registered cache. Called after the dataset changes.
func (m *Manager) PurgeAll() {
	m.mu.Lock()
	caches := append([]Store(nil), m.caches...)
	m.mu.Unlock()
	for _, c := range caches {
		c.Purge()
	}
}

// StartCleanup begins periodic cleanup of all registered caches.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			caches := append([]Store(nil), m.caches...)
			m.mu.Unlock()
			total := 0
			for _, c := range caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				slog.Debug("Expired report cache entries removed", "count", total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup routine. Safe to call when cleanup never started.
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()
	if started {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}
