package monitor

import (
	"sync"

	"github.com/coder/websocket"
)

// sendBuffer is the per-subscriber event backlog. Events beyond it are
// dropped for that subscriber rather than blocking the publisher.
const sendBuffer = 32

// subscriber is one websocket client with its outbound event queue.
// All writes to the connection go through the queue so a single writer
// goroutine owns the socket.
type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

func newSubscriber(conn *websocket.Conn) *subscriber {
	return &subscriber{conn: conn, send: make(chan Event, sendBuffer)}
}

// enqueue offers an event without blocking. It reports false when the
// subscriber's queue is full.
func (s *subscriber) enqueue(ev Event) bool {
	select {
	case s.send <- ev:
		return true
	default:
		return false
	}
}

// clientRegistry tracks connected websocket subscribers.
type clientRegistry struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{subs: make(map[*subscriber]struct{})}
}

func (r *clientRegistry) add(sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub] = struct{}{}
}

func (r *clientRegistry) remove(sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, sub)
}

func (r *clientRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// publish queues the event for every subscriber and returns the number
// of subscribers whose queue was full.
func (r *clientRegistry) publish(ev Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dropped := 0
	for sub := range r.subs {
		if !sub.enqueue(ev) {
			dropped++
		}
	}
	return dropped
}

// closeAll closes every subscriber connection with the given status.
func (r *clientRegistry) closeAll(code websocket.StatusCode, reason string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for sub := range r.subs {
		_ = sub.conn.Close(code, reason)
	}
}
