package presence

import (
	"log"
	"sort"
	"sync"

	"messenger-service/internal/models"
)

// Session is one live connection owned by a user. Send must fail fast when
// the peer is gone; it is never retried.
type Session interface {
	UserID() int
	Send(event models.Event) error
}

// Registry tracks which users currently hold live sessions. It is
// constructed once per process and injected wherever fan-out targets are
// resolved. The lock guards the roster map only; it is never held while
// writing to a session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int]map[Session]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: map[int]map[Session]struct{}{}}
}

// Register adds a session under its owning user and broadcasts the updated
// online-user set to every connected session.
func (r *Registry) Register(s Session) {
	r.mu.Lock()
	set, ok := r.sessions[s.UserID()]
	if !ok {
		set = map[Session]struct{}{}
		r.sessions[s.UserID()] = set
	}
	set[s] = struct{}{}
	r.mu.Unlock()

	r.broadcastOnline()
}

// Unregister removes a session from whichever user owns it. Removing a
// session that was never registered, or removing it twice, is a no-op.
func (r *Registry) Unregister(s Session) {
	if r.remove(s) {
		r.broadcastOnline()
	}
}

// Discard removes a session without a roster broadcast. It is used when a
// push fails mid-fan-out, where a re-broadcast from inside the failure path
// would feed the same dead connection again.
func (r *Registry) Discard(s Session) {
	r.remove(s)
}

func (r *Registry) remove(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[s.UserID()]
	if !ok {
		return false
	}
	if _, exists := set[s]; !exists {
		return false
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, s.UserID())
	}
	return true
}

// IsOnline reports whether the user has at least one live session.
func (r *Registry) IsOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID]) > 0
}

// SessionsFor returns a snapshot of the user's live sessions.
func (r *Registry) SessionsFor(userID int) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions[userID]))
	for s := range r.sessions[userID] {
		out = append(out, s)
	}
	return out
}

// OnlineUsers returns the sorted ids of all users with live sessions.
func (r *Registry) OnlineUsers() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// broadcastOnline pushes the current online-user set to every session.
// Delivery is best-effort: a stale connection is dropped and never blocks
// the rest, and the mutating caller never sees an error.
func (r *Registry) broadcastOnline() {
	users := r.OnlineUsers()

	r.mu.RLock()
	targets := make([]Session, 0, len(r.sessions))
	for _, set := range r.sessions {
		for s := range set {
			targets = append(targets, s)
		}
	}
	r.mu.RUnlock()

	event := models.Event{Type: models.EventOnlineUsers, Users: users}
	for _, s := range targets {
		if err := s.Send(event); err != nil {
			log.Printf("presence broadcast to user %d failed: %v", s.UserID(), err)
			r.remove(s)
		}
	}
}
