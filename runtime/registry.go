// Package runtime handles session presence, event propagation, and the
// background lifecycle of messages. It orchestrates the system without
// containing business logic or domain rules.
package runtime

import (
	"sync"

	"chat-server/contract"
	"chat-server/domain"
)

type Set map[string]struct{}

type sessionEntry struct {
	session domain.Session
	sink    contract.EventSink
	rooms   map[domain.Room]struct{}
}

// Registry tracks which sessions are listening to which rooms.
//
// Presence operations never fail observably: joining a room twice, joining
// from an unknown session, or leaving a session that never joined anything
// are all no-ops. This keeps the registry resilient to out-of-order
// connect/disconnect events.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry // session ID -> live connection state
	rooms    map[domain.Room]Set      // room -> session IDs joined to it
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*sessionEntry),
		rooms:    make(map[domain.Room]Set),
	}
}

// Connect registers a fresh session and auto-joins the user's personal room,
// so one connection covers all of that user's conversations and devices.
func (r *Registry) Connect(session domain.Session, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &sessionEntry{
		session: session,
		sink:    sink,
		rooms:   make(map[domain.Room]struct{}),
	}
	r.sessions[session.ID] = entry
	r.join(entry, domain.UserRoom(session.UserID))
}

// JoinRoom adds the room to the session's membership set. Idempotent;
// unknown sessions simply receive no future traffic.
func (r *Registry) JoinRoom(sessionID string, room domain.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	r.join(entry, room)
}

func (r *Registry) join(entry *sessionEntry, room domain.Room) {
	entry.rooms[room] = struct{}{}
	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(Set)
	}
	r.rooms[room][entry.session.ID] = struct{}{}
}

// LeaveAll releases every room membership of the session atomically.
// Invoked on disconnect; safe to call for sessions that never joined.
func (r *Registry) LeaveAll(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	for room := range entry.rooms {
		if members, exists := r.rooms[room]; exists {
			delete(members, sessionID)

			// If no one is left in the room, remove the room entry entirely
			if len(members) == 0 {
				delete(r.rooms, room)
			}
		}
	}
	delete(r.sessions, sessionID)
}

// SinksForRoom resolves the room's current members into live session sinks.
// It performs a two-step lookup: session IDs via the room set, then the
// actual sinks via the session directory, so a connection is managed in a
// single place no matter how many rooms it joined.
// Returns nil if the room doesn't exist or has no members.
func (r *Registry) SinksForRoom(room domain.Room) []contract.SessionSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.rooms[room]
	if !ok {
		return nil
	}
	var activeSinks []contract.SessionSink
	for sessionID := range members {
		if entry, exists := r.sessions[sessionID]; exists {
			activeSinks = append(activeSinks, contract.SessionSink{
				Session: entry.session,
				Sink:    entry.sink,
			})
		}
	}
	return activeSinks
}
