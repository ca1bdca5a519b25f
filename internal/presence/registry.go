// Package presence tracks which users currently hold live push connections.
package presence

import (
	"sync"

	"github.com/anonto42/nano-midea/notifier/internal/auth"
	pkgerrors "github.com/anonto42/nano-midea/notifier/pkg/errors"
	"github.com/anonto42/nano-midea/notifier/pkg/metrics"
)

// Connection is a live push channel to one client. Send must not block for
// long; a connection that cannot accept the event returns an error.
type Connection interface {
	ID() string
	Send(event string, payload []byte) error
	Close()
}

// Registry maps a user id to the set of that user's live connections.
// The zero value is not usable; use NewRegistry.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]map[string]Connection
	total   int
	closed  bool
	metrics *metrics.Metrics
}

func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		conns:   make(map[string]map[string]Connection),
		metrics: m,
	}
}

// Register adds conn to the principal's set and returns the user id it was
// registered under. Only authenticated principals may register.
func (r *Registry) Register(principal auth.Principal, conn Connection) (string, error) {
	userID, ok := auth.UserID(principal)
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeAuthenticationFailed, "authentication required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "registry is shutting down")
	}

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]Connection)
		r.conns[userID] = set
	}
	if _, dup := set[conn.ID()]; !dup {
		r.total++
	}
	set[conn.ID()] = conn
	r.metrics.SetLiveConnections(r.total)
	return userID, nil
}

// Unregister removes conn from userID's set. Removing an unknown connection is a no-op.
func (r *Registry) Unregister(userID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return
	}
	if _, ok := set[conn.ID()]; !ok {
		return
	}
	delete(set, conn.ID())
	r.total--
	if len(set) == 0 {
		delete(r.conns, userID)
	}
	r.metrics.SetLiveConnections(r.total)
}

// ConnectionsFor returns a snapshot of userID's live connections.
func (r *Registry) ConnectionsFor(userID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Connection, 0, len(set))
	for _, c := range set {
		out = append(out, c)
	}
	return out
}

// Count returns the number of live connections across all users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

// Close closes every registered connection and rejects further registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	var all []Connection
	for _, set := range r.conns {
		for _, c := range set {
			all = append(all, c)
		}
	}
	r.conns = make(map[string]map[string]Connection)
	r.total = 0
	r.closed = true
	r.metrics.SetLiveConnections(0)
	r.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
