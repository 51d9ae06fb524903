package runtime

import (
	"sync"

	"match-lab/contract"
	"match-lab/domain"
)

type Set map[domain.Identity]struct{}

// Registry is the process-wide mapping from identity to the active
// outbound-delivery sink, plus the broadcast group memberships
// (presence group, chat threads, notification channels).
//
// Connection handlers hold a reference to a single shared Registry,
// never a private copy.
type Registry struct {
	mu           sync.RWMutex
	connections  map[domain.Identity]contract.ConnectionSink
	groupMembers map[string]Set
}

func NewRegistry() *Registry {
	return &Registry{
		connections:  make(map[domain.Identity]contract.ConnectionSink),
		groupMembers: make(map[string]Set),
	}
}

// Register installs the sink for an identity. A later connect for the
// same identity replaces the former live handle: last writer wins,
// entries are never merged.
func (r *Registry) Register(id domain.Identity, sink contract.ConnectionSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[id] = sink
}

func (r *Registry) Lookup(id domain.Identity) (contract.ConnectionSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.connections[id]
	return sink, ok
}

// Unregister removes the mapping if present. Idempotent.
func (r *Registry) Unregister(id domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, id)
}

// Deliver looks up the identity and sends. When the identity has no
// live connection, or its send buffer is saturated, the frame is
// silently dropped; the caller only learns whether delivery happened.
func (r *Registry) Deliver(id domain.Identity, payload []byte) bool {
	sink, ok := r.Lookup(id)
	if !ok {
		return false
	}
	return sink.Deliver(payload) == nil
}

// JoinGroup assigns an identity to a broadcast group, initializing the
// group on the fly if it does not exist yet.
func (r *Registry) JoinGroup(group string, id domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groupMembers[group]; !ok {
		r.groupMembers[group] = make(Set)
	}
	r.groupMembers[group][id] = struct{}{}
}

// LeaveGroup removes an identity from a group. Empty sets are removed
// entirely so teardown never leaks registry entries.
func (r *Registry) LeaveGroup(group string, id domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groupMembers[group]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.groupMembers, group)
	}
}

// Broadcast fans a frame out to every member of a group that currently
// holds a live connection and reports how many deliveries succeeded.
// The member snapshot is taken under the read lock; the sends happen
// outside it so a slow sink cannot stall registration.
func (r *Registry) Broadcast(group string, payload []byte) int {
	r.mu.RLock()
	var sinks []contract.ConnectionSink
	for id := range r.groupMembers[group] {
		if sink, ok := r.connections[id]; ok {
			sinks = append(sinks, sink)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, sink := range sinks {
		if sink.Deliver(payload) == nil {
			delivered++
		}
	}
	return delivered
}

// Members returns the identities currently assigned to a group.
func (r *Registry) Members(group string) []domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []domain.Identity
	for id := range r.groupMembers[group] {
		ids = append(ids, id)
	}
	return ids
}
