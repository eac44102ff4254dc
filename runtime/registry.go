// Package runtime handles presence tracking and live event delivery.
// It orchestrates the system without containing business logic or
// domain rules.
package runtime

import (
	"sort"
	"sync"

	"chat-relay/contract"
)

// Registry is the process-wide presence map: userID -> live EventSink.
// At most one sink per user; registering a second connection for the
// same user overwrites the first (single-active-connection model).
// All access goes through the mutex, callers never touch the map.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.EventSink
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]contract.EventSink)}
}

// Register binds a user to their live connection. Last connection wins.
func (r *Registry) Register(userID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = sink
}

// Deregister removes the user's entry only when it still holds the given
// sink. A disconnect from a superseded session must not erase the newer
// registration, so a stale close is a no-op.
func (r *Registry) Deregister(userID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[userID]; ok && current == sink {
		delete(r.sessions, userID)
	}
}

// Lookup resolves a user to their active sink, if any.
func (r *Registry) Lookup(userID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[userID]
	return sink, ok
}

// Snapshot returns a sorted copy of the online user set. Callers iterate
// the copy freely, never the live map.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	online := make([]string, 0, len(r.sessions))
	for userID := range r.sessions {
		online = append(online, userID)
	}
	r.mu.RUnlock()

	sort.Strings(online)
	return online
}

// Sinks returns the current set of live sinks for a broadcast. Like
// Snapshot it copies under the read lock so a broadcast never holds the
// lock while pushing.
func (r *Registry) Sinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sinks := make([]contract.EventSink, 0, len(r.sessions))
	for _, sink := range r.sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}
