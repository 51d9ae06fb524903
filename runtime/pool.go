package runtime

import (
	"sync"

	"match-lab/domain"
)

// WaitingPool is the ordered collection of identities seeking a match.
// Insertion order determines pairing order (FIFO, head-first) and an
// identity appears at most once.
//
// All mutations happen inside the matchmaker goroutine, but the pool
// carries its own lock so Len and tests can observe it from outside
// that consistency domain.
type WaitingPool struct {
	mu      sync.Mutex
	order   []domain.Identity
	members Set
}

func NewWaitingPool() *WaitingPool {
	return &WaitingPool{members: make(Set)}
}

// Enqueue appends an identity to the tail. A duplicate enqueue is a
// no-op and reports false, leaving the pool unchanged.
func (p *WaitingPool) Enqueue(id domain.Identity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.members[id]; ok {
		return false
	}
	p.members[id] = struct{}{}
	p.order = append(p.order, id)
	return true
}

// DequeuePair removes and returns the two oldest entries.
func (p *WaitingPool) DequeuePair() (domain.Identity, domain.Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.order) < 2 {
		return domain.Anonymous, domain.Anonymous, false
	}
	a, b := p.order[0], p.order[1]
	p.order = p.order[2:]
	delete(p.members, a)
	delete(p.members, b)
	return a, b, true
}

// PushFront returns an identity to the head of the pool, preserving its
// seniority when a pairing had to be rolled back.
func (p *WaitingPool) PushFront(id domain.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.members[id]; ok {
		return
	}
	p.members[id] = struct{}{}
	p.order = append([]domain.Identity{id}, p.order...)
}

// Remove drops an identity from the pool if still present. Idempotent.
func (p *WaitingPool) Remove(id domain.Identity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.members[id]; !ok {
		return false
	}
	delete(p.members, id)
	for i, waiting := range p.order {
		if waiting == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

func (p *WaitingPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}
