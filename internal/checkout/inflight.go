package checkout

import "sync"

// inflightGuard tracks which users have a payment submission in flight.
// It is the server-side equivalent of disabling the submit button: a second
// submission while the first is pending is refused instead of queued.
type inflightGuard struct {
	mu    sync.Mutex
	users map[string]struct{}
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{
		users: make(map[string]struct{}),
	}
}

// acquire reserves the user's submission slot. Returns false if a
// submission is already in flight.
func (g *inflightGuard) acquire(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.users[userID]; busy {
		return false
	}
	g.users[userID] = struct{}{}
	return true
}

// release frees the user's submission slot. Safe to call on any exit path.
func (g *inflightGuard) release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.users, userID)
}
