package sioclient

import "sync"

// EventHandler handles a dispatched event
type EventHandler func(args ...interface{})

// Subscription identifies a single handler registration. Go functions
// have no identity, so Off takes the subscription returned by On.
type Subscription struct {
	name string
	seq  uint64
}

type handlerEntry struct {
	seq uint64
	fn  EventHandler
}

// handlerRegistry maps event names to their subscribers. Registration
// is additive and removal subtractive; subscribers for a name are kept
// in registration order.
type handlerRegistry struct {
	mu       sync.RWMutex
	seq      uint64
	handlers map[string][]handlerEntry
}

func (h *handlerRegistry) on(name string, fn EventHandler) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.handlers == nil {
		h.handlers = make(map[string][]handlerEntry)
	}

	h.seq++
	h.handlers[name] = append(h.handlers[name], handlerEntry{seq: h.seq, fn: fn})
	return Subscription{name: name, seq: h.seq}
}

// off removes exactly the registration identified by sub. Removing an
// unknown subscription is a no-op and reports false.
func (h *handlerRegistry) off(sub Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.handlers[sub.name]
	for i := range entries {
		if entries[i].seq == sub.seq {
			h.handlers[sub.name] = append(entries[:i], entries[i+1:]...)
			if len(h.handlers[sub.name]) == 0 {
				delete(h.handlers, sub.name)
			}
			return true
		}
	}
	return false
}

// get returns a snapshot of the subscribers for name in registration
// order
func (h *handlerRegistry) get(name string) []EventHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()

	entries := h.handlers[name]
	if len(entries) == 0 {
		return nil
	}

	fns := make([]EventHandler, len(entries))
	for i, e := range entries {
		fns[i] = e.fn
	}
	return fns
}
