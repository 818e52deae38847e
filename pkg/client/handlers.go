package client

import "sync"

// MessageHandler receives chat messages delivered to the room.
type MessageHandler func(msg ChatMessage)

// ErrorHandler receives transport and server error descriptions.
type ErrorHandler func(errMsg string)

// ConnHandler is notified on connect and disconnect transitions.
type ConnHandler func()

// handlerList is an ordered collection of handler records with explicit
// removal tokens. Removal is idempotent and duplicate registrations of the
// same function are distinct entries.
type handlerList struct {
	mu      sync.Mutex
	nextID  int
	entries []handlerEntry
}

type handlerEntry struct {
	id int
	fn func(arg any)
}

// add registers a handler and returns its removal func.
func (l *handlerList) add(fn func(arg any)) func() {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.entries = append(l.entries, handlerEntry{id: id, fn: fn})
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.entries {
			if e.id == id {
				l.entries = append(l.entries[:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

// dispatch invokes handlers in registration order. A panicking handler
// must not prevent the remaining handlers from running.
func (l *handlerList) dispatch(arg any) {
	l.mu.Lock()
	entries := make([]handlerEntry, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	for _, e := range entries {
		func() {
			defer func() {
				_ = recover()
			}()
			e.fn(arg)
		}()
	}
}
