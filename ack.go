package sioclient

import (
	"sync"
	"sync/atomic"
	"time"
)

// AckFunc handles the reply to an event emitted with EmitWithAck
type AckFunc func(args ...interface{})

type pendingAck struct {
	id        int
	createdAt time.Time
	fn        AckFunc
}

// ackRegistry tracks outbound calls awaiting a correlated reply.
//
// Registrations are kept in id order: ids come from a monotonically
// increasing counter and are never reused while outstanding, so
// registration order is also age order and expiry can evict from the
// front. Lookup is a linear scan; outstanding acks are expected to be
// few.
type ackRegistry struct {
	mu      sync.Mutex
	pending []pendingAck
	counter atomic.Int64
}

// next allocates the next correlation id. Ids start at 1.
func (r *ackRegistry) next() int {
	return int(r.counter.Add(1))
}

func (r *ackRegistry) register(id int, fn AckFunc) {
	r.mu.Lock()
	r.pending = append(r.pending, pendingAck{id: id, createdAt: time.Now(), fn: fn})
	r.mu.Unlock()
}

func (r *ackRegistry) has(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.pending {
		if r.pending[i].id == id {
			return true
		}
	}
	return false
}

// take removes and returns the first registration matching id,
// preserving the order of the rest.
func (r *ackRegistry) take(id int) (AckFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.pending {
		if r.pending[i].id == id {
			fn := r.pending[i].fn
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return fn, true
		}
	}
	return nil, false
}

// sweep evicts registrations older than maxAge from the front of the
// list and returns how many were dropped. Callbacks are never invoked
// on eviction.
func (r *ackRegistry) sweep(now time.Time, maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for len(r.pending) > 0 && now.Sub(r.pending[0].createdAt) > maxAge {
		r.pending = r.pending[1:]
		evicted++
	}
	return evicted
}

func (r *ackRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
