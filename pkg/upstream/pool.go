package upstream

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrPoolEmpty is returned by Next when no endpoints are registered.
// Callers must translate it into a service-unavailable response rather
// than propagate it as a failure of the pool itself.
var ErrPoolEmpty = errors.New("upstream pool is empty")

// Pool is an ordered set of backend endpoints with a round-robin cursor.
//
// Membership changes only through Register and Deregister, both of which
// are idempotent. Next is safe for concurrent use: selection reads a
// snapshot of the members and advances an atomic cursor.
type Pool struct {
	// counter is the global round-robin cursor.
	counter atomic.Int64

	mu      sync.RWMutex
	members []Endpoint

	logger *slog.Logger

	// onChange, if set, is invoked with the new pool size after every
	// membership change. Used to keep the pool-size gauge current.
	onChange func(size int)
}

// NewPool creates an empty pool.
func NewPool(logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		logger: logger.With("component", "upstream.pool"),
	}
}

// OnChange registers a callback invoked with the pool size after each
// membership change. Must be called before the pool is shared.
func (p *Pool) OnChange(fn func(size int)) {
	p.onChange = fn
}

// Register adds an endpoint to the pool. Registering an endpoint that is
// already a member is a no-op.
func (p *Pool) Register(e Endpoint) {
	p.mu.Lock()
	for _, m := range p.members {
		if m.Addr() == e.Addr() {
			p.mu.Unlock()
			return
		}
	}
	p.members = append(p.members, e)
	size := len(p.members)
	p.mu.Unlock()

	p.logger.Info("upstream registered", "endpoint", e.String(), "pool_size", size)
	p.notify(size)
}

// Deregister removes an endpoint from the pool. Removing an endpoint that
// is not a member is a no-op. Membership is keyed by address, so the
// endpoint name does not need to match.
func (p *Pool) Deregister(e Endpoint) {
	p.mu.Lock()
	idx := -1
	for i, m := range p.members {
		if m.Addr() == e.Addr() {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.mu.Unlock()
		return
	}
	p.members = append(p.members[:idx], p.members[idx+1:]...)
	size := len(p.members)
	p.mu.Unlock()

	p.logger.Info("upstream deregistered", "endpoint", e.String(), "pool_size", size)
	p.notify(size)
}

// Next selects the next endpoint using round-robin over the current
// members. It returns ErrPoolEmpty when no endpoints are registered.
//
// The cursor is advanced atomically, so k consecutive calls against a
// stable pool of k endpoints return each endpoint exactly once.
func (p *Pool) Next() (Endpoint, error) {
	p.mu.RLock()
	members := p.members
	p.mu.RUnlock()

	if len(members) == 0 {
		return Endpoint{}, ErrPoolEmpty
	}

	// Single member - no need to advance the cursor... except that the
	// round-robin position must stay meaningful if a second member is
	// registered later, so advance it anyway.
	count := p.counter.Add(1) - 1

	// Reset the counter when it grows large to prevent unbounded growth.
	if count >= 1_000_000_000 {
		p.counter.CompareAndSwap(count+1, 0)
		count = count % int64(len(members))
	}

	return members[count%int64(len(members))], nil
}

// Len returns the current number of registered endpoints.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// Snapshot returns a copy of the current members in registration order.
func (p *Pool) Snapshot() []Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Endpoint, len(p.members))
	copy(out, p.members)
	return out
}

// Reconcile brings pool membership in line with the desired set:
// endpoints not yet registered are added, members absent from the desired
// set are removed. Existing members keep their position so in-flight
// round-robin distribution is disturbed as little as possible.
func (p *Pool) Reconcile(desired []Endpoint) {
	want := make(map[string]Endpoint, len(desired))
	for _, e := range desired {
		want[e.Addr()] = e
	}

	for _, m := range p.Snapshot() {
		if _, ok := want[m.Addr()]; !ok {
			p.Deregister(m)
		}
	}
	for _, e := range desired {
		p.Register(e)
	}
}

// ResetCursor resets the round-robin cursor. Primarily used by tests.
func (p *Pool) ResetCursor() {
	p.counter.Store(0)
}

func (p *Pool) notify(size int) {
	if p.onChange != nil {
		p.onChange(size)
	}
}
