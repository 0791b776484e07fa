// Package server coordinates session registration, username claims, and
// connection cleanup for the roomcast relay via the Registry type.
package server

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrUsernameTaken reports a join attempt for a username already claimed in
// the target room. Callers surface it as a re-prompt, not an error page.
var ErrUsernameTaken = errors.New("username already taken in room")

// room holds the mutable per-room state. Its mutex covers the compound
// check-and-insert in Join, so two concurrent joins for the same username
// cannot both succeed.
type room struct {
	mu        sync.Mutex
	usernames map[string]struct{}
	sessions  map[*Session]struct{}
}

// Registry maps room identifiers to the set of usernames currently claimed in
// each room and the set of live sessions eligible for broadcast delivery.
// A process owns exactly one Registry, constructed at startup and injected
// into every component that needs it.
//
// Locking is per room: the registry-level RWMutex only guards the room map
// itself, so operations on distinct rooms proceed independently. Rooms are
// created lazily on first reference and persist for the life of the process.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
	wg    sync.WaitGroup
}

// NewRegistry creates an empty Registry ready to track rooms and sessions.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
	}
}

func (reg *Registry) room(id string) *room {
	reg.mu.RLock()
	r := reg.rooms[id]
	reg.mu.RUnlock()
	if r != nil {
		return r
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if r = reg.rooms[id]; r == nil {
		r = &room{
			usernames: make(map[string]struct{}),
			sessions:  make(map[*Session]struct{}),
		}
		reg.rooms[id] = r
	}
	return r
}

// Join atomically claims the session's username within its room and adds the
// session to the broadcast set. Of two concurrent joins for the same room and
// username, exactly one succeeds; the other observes ErrUsernameTaken.
func (reg *Registry) Join(s *Session) error {
	r := reg.room(s.roomID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.usernames[s.username]; taken {
		return ErrUsernameTaken
	}
	r.usernames[s.username] = struct{}{}
	r.sessions[s] = struct{}{}

	log.Printf("Session %q joined room %q. Room sessions: %d", s.username, s.roomID, len(r.sessions))
	return nil
}

// Leave removes the session and its username claim from the room. It is
// idempotent: leaving twice, or leaving a room that was never joined, is a
// no-op. The session's presence in the active set guards the username
// removal, so a name re-claimed by a newer session is never dropped by a
// stale teardown.
func (reg *Registry) Leave(s *Session) {
	reg.mu.RLock()
	r := reg.rooms[s.roomID]
	reg.mu.RUnlock()
	if r == nil {
		return
	}

	r.mu.Lock()
	if _, ok := r.sessions[s]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, s)
	delete(r.usernames, s.username)
	remaining := len(r.sessions)
	r.mu.Unlock()

	log.Printf("Session %q left room %q. Room sessions: %d", s.username, s.roomID, remaining)
}

// Targets returns a snapshot of the sessions currently active in the room.
// The snapshot is taken under the room lock; delivery to each target happens
// after the lock is released so slow peers never block joins or leaves.
func (reg *Registry) Targets(roomID string) []*Session {
	reg.mu.RLock()
	r := reg.rooms[roomID]
	reg.mu.RUnlock()
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	targets := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		targets = append(targets, s)
	}
	return targets
}

// Claimed reports whether username is currently claimed in the room.
func (reg *Registry) Claimed(roomID, username string) bool {
	reg.mu.RLock()
	r := reg.rooms[roomID]
	reg.mu.RUnlock()
	if r == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, taken := r.usernames[username]
	return taken
}

// SessionCount returns the number of sessions currently active in the room.
func (reg *Registry) SessionCount(roomID string) int {
	return len(reg.Targets(roomID))
}

// Shutdown closes every live session's transport and waits for the pump
// goroutines to finish, or until the timeout is reached.
func (reg *Registry) Shutdown(timeout time.Duration) error {
	log.Println("Shutting down all sessions...")

	reg.mu.RLock()
	var sessions []*Session
	for _, r := range reg.rooms {
		r.mu.Lock()
		for s := range r.sessions {
			sessions = append(sessions, s)
		}
		r.mu.Unlock()
	}
	reg.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
	log.Printf("Closed %d sessions", len(sessions))

	done := make(chan struct{})
	go func() {
		reg.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Session shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Println("Session shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
