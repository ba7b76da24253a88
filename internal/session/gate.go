package session

import "sync"

// Gate tracks each session's state and runs hooks on the transitions only:
// enter on anonymous to authenticated, leave on the way back. Events that do
// not change a session's state do nothing.
//
// Events for one session are handled one at a time, so an event that arrives
// while enter is still running returns only after enter has finished.
type Gate struct {
	enter func(Event)
	leave func(Event)

	mu     sync.Mutex
	states map[string]State
	locks  map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewGate(enter, leave func(Event)) *Gate {
	return &Gate{
		enter:  enter,
		leave:  leave,
		states: make(map[string]State),
		locks:  make(map[string]*sessionLock),
	}
}

// Handle is suitable for Hub.Subscribe.
func (g *Gate) Handle(event Event) {
	if event.SessionID == "" {
		return
	}
	unlock := g.lockSession(event.SessionID)
	defer unlock()

	g.mu.Lock()
	previous := g.states[event.SessionID]
	if event.State == Authenticated {
		g.states[event.SessionID] = Authenticated
	} else {
		delete(g.states, event.SessionID)
	}
	g.mu.Unlock()

	switch {
	case previous == Anonymous && event.State == Authenticated:
		if g.enter != nil {
			g.enter(event)
		}
	case previous == Authenticated && event.State == Anonymous:
		if g.leave != nil {
			g.leave(event)
		}
	}
}

// lockSession serializes Handle per session. The lock is dropped from the
// map once nobody holds or waits for it.
func (g *Gate) lockSession(sessionID string) func() {
	g.mu.Lock()
	lock := g.locks[sessionID]
	if lock == nil {
		lock = &sessionLock{}
		g.locks[sessionID] = lock
	}
	lock.refs++
	g.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		g.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(g.locks, sessionID)
		}
		g.mu.Unlock()
	}
}

func (g *Gate) State(sessionID string) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.states[sessionID]
}
