// Package session owns the live driver.Driver instances backing concurrent
// player flights, bounded at a fixed capacity so one server process can't
// be driven into unbounded memory growth by an unbounded number of
// sessions.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/inkorange/mission-control/internal/driver"
	"github.com/inkorange/mission-control/internal/metrics"
)

// Registry owns one *driver.Driver per SessionID, evicting (aborting) the
// least-recently-used session when full. Recency is updated only by Put,
// Get and Touch.
type Registry struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *driver.Driver]
	logger *slog.Logger
}

// NewRegistry creates a Registry bounded at capacity live sessions.
func NewRegistry(capacity int, logger *slog.Logger) (*Registry, error) {
	r := &Registry{logger: logger}
	onEvict := func(id string, d *driver.Driver) {
		d.Simulator().Abort()
		metrics.IncSessionsEvicted()
		logger.Warn("session evicted under capacity pressure", "session_id", id)
	}
	cache, err := lru.NewWithEvict[string, *driver.Driver](capacity, onEvict)
	if err != nil {
		return nil, fmt.Errorf("creating session registry: %w", err)
	}
	r.cache = cache
	return r, nil
}

// Put registers a new session, evicting the least-recently-used one if
// the registry is at capacity.
func (r *Registry) Put(id string, d *driver.Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Add(id, d)
}

// Get returns the driver for id, marking it most-recently-used, and
// whether it was found.
func (r *Registry) Get(id string) (*driver.Driver, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Get(id)
}

// Touch marks id as most-recently-used without retrieving it, so that
// session is evicted after any session touched or fetched less recently.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Get(id)
}

// Remove deletes a session from the registry. The cache runs the eviction
// callback for removed entries too, so the session's simulator is aborted,
// the eviction metric is incremented and the eviction warning is logged.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
