package session

import (
	"sync"
)

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Reason says what produced an Event.
type Reason string

const (
	ReasonLogin   Reason = "login"
	ReasonRestore Reason = "restore"
	ReasonRefresh Reason = "refresh"
	ReasonLogout  Reason = "logout"
	ReasonExpired Reason = "expired"
)

// Event reports the state a session moved to.
type Event struct {
	SessionID   string
	UserID      string
	DisplayName string
	State       State
	Reason      Reason
}

// Hub fans session events out to subscribers. Publish calls subscribers
// synchronously in subscription order.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
	order  []int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (h *Hub) Subscribe(fn func(Event)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = fn
	h.order = append(h.order, id)
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			for i, existing := range h.order {
				if existing == id {
					h.order = append(h.order[:i:i], h.order[i+1:]...)
					break
				}
			}
			h.mu.Unlock()
		})
	}
}

func (h *Hub) Publish(event Event) {
	h.mu.Lock()
	subscribers := make([]func(Event), 0, len(h.order))
	for _, id := range h.order {
		subscribers = append(subscribers, h.subs[id])
	}
	h.mu.Unlock()

	for _, fn := range subscribers {
		fn(event)
	}
}
