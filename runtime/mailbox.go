package runtime

import (
	"fmt"
	"sync"

	"match-lab/domain"
	"match-lab/errors"
)

// ResponseRegistry holds the per-identity single-slot mailboxes that
// carry accept/reject decisions from a connection handler into the
// match session waiting for them.
//
// Invariant: at most one session may hold a live mailbox for a given
// identity. Open enforces it; Close tears the lease down so a later
// match for the identity gets a fresh channel.
type ResponseRegistry struct {
	mu        sync.Mutex
	mailboxes map[domain.Identity]chan domain.Response
}

func NewResponseRegistry() *ResponseRegistry {
	return &ResponseRegistry{mailboxes: make(map[domain.Identity]chan domain.Response)}
}

// Open creates the mailbox for an identity. Opening while a lease is
// still live fails with ErrResponsePending instead of replacing it.
func (r *ResponseRegistry) Open(id domain.Identity) (chan domain.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mailboxes[id]; ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrResponsePending, id)
	}
	// Capacity one: the slot holds a single decision until consumed.
	ch := make(chan domain.Response, 1)
	r.mailboxes[id] = ch
	return ch, nil
}

// Post drops a decision into the identity's mailbox. A response from an
// identity with no open mailbox is discarded, as is a second decision
// while the slot is still full. Never blocks.
func (r *ResponseRegistry) Post(id domain.Identity, resp domain.Response) bool {
	r.mu.Lock()
	ch, ok := r.mailboxes[id]
	r.mu.Unlock()

	if !ok {
		return false
	}
	select {
	case ch <- resp:
		return true
	default:
		return false
	}
}

// Close tears the mailbox down. Idempotent. The channel itself is never
// closed so a racing Post degrades to a discard instead of a panic.
func (r *ResponseRegistry) Close(id domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mailboxes, id)
}

// Pending reports whether an identity currently holds a live mailbox.
func (r *ResponseRegistry) Pending(id domain.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.mailboxes[id]
	return ok
}
