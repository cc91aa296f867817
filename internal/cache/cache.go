// Package cache holds short-lived read models (dashboard, monthly series)
// computed from the ledger. Entries are dropped wholesale on every write.
package cache

import (
	"sync"
	"time"

	"conti/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Purger is implemented by caches that can drop every entry.
type Purger interface {
	Purge()
}

// Manager runs periodic expiry for registered caches and invalidates them
// together when the ledger changes.
type Manager struct {
	mu       sync.Mutex
	cleaners []Cleaner
	purgers  []Purger
	logger   *log.Logger
	started  bool

	stopOnce    sync.Once
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager. Caches implementing Purger are
// invalidated by InvalidateAll.
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleaners = append(m.cleaners, c)
	if p, ok := c.(Purger); ok {
		m.purgers = append(m.purgers, p)
	}
}

// InvalidateAll purges every registered cache.
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	purgers := append([]Purger(nil), m.purgers...)
	m.mu.Unlock()
	for _, p := range purgers {
		p.Purge()
	}
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.cleanExpired(); n > 0 {
				m.logger.Debug("Expired cache entries removed", log.FieldCount, n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) cleanExpired() int {
	m.mu.Lock()
	cleaners := append([]Cleaner(nil), m.cleaners...)
	m.mu.Unlock()
	total := 0
	for _, c := range cleaners {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup routine started by StartCleanup. Safe to call more
// than once; it does not block when cleanup was never started.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		close(m.stopCleanup)
		if started {
			<-m.cleanupDone
		}
	})
}
