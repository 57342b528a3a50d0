package sioclient

import (
	"sync"

	"github.com/eapache/queue"
)

// Event is a decoded application-level event waiting for dispatch
type Event struct {
	Name string
	Args []interface{}
}

// dispatchQueue hands decoded work off from the transport callback
// goroutine to the single drain consumer. Producers never block; drain
// returns and clears the current contents atomically.
//
// The event queue and the ack queue are independent instances so event
// and ack traffic never contend on the same lock.
type dispatchQueue struct {
	mu sync.Mutex
	q  *queue.Queue
}

func newDispatchQueue() *dispatchQueue {
	return &dispatchQueue{q: queue.New()}
}

func (d *dispatchQueue) push(v interface{}) {
	d.mu.Lock()
	d.q.Add(v)
	d.mu.Unlock()
}

func (d *dispatchQueue) drain() []interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.q.Length()
	if n == 0 {
		return nil
	}

	out := make([]interface{}, 0, n)
	for d.q.Length() > 0 {
		out = append(out, d.q.Remove())
	}
	return out
}

func (d *dispatchQueue) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.q.Length()
}
