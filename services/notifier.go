package services

import (
	"encoding/json"
	"log/slog"
	"sync"

	"match-lab/contract"
	"match-lab/domain"
)

// Notifier keeps an in-memory unread counter per identity and pushes it
// to the user's notification channel. It is plain fan-out: subscribers
// of the group receive the counter verbatim, nothing is persisted.
type Notifier struct {
	mu       sync.Mutex
	counts   map[domain.Identity]int
	registry contract.IRegistry
	log      *slog.Logger
}

func NewNotifier(registry contract.IRegistry, log *slog.Logger) *Notifier {
	return &Notifier{
		counts:   make(map[domain.Identity]int),
		registry: registry,
		log:      log,
	}
}

// Bump increments the counter for an identity and broadcasts the new
// value to its notification group. Best-effort like every delivery.
func (n *Notifier) Bump(id domain.Identity) int {
	n.mu.Lock()
	n.counts[id]++
	count := n.counts[id]
	n.mu.Unlock()

	n.push(id, count)
	return count
}

// Reset clears the counter, typically when the user opens the thread.
func (n *Notifier) Reset(id domain.Identity) {
	n.mu.Lock()
	delete(n.counts, id)
	n.mu.Unlock()

	n.push(id, 0)
}

func (n *Notifier) push(id domain.Identity, count int) {
	payload, err := json.Marshal(domain.CounterNotice{Count: count})
	if err != nil {
		n.log.Error("Counter frame marshalling failed", "error", err)
		return
	}
	delivered := n.registry.Broadcast(domain.NotifyGroup(id), payload)
	n.log.Debug("Counter pushed", "identity", id, "count", count, "delivered", delivered)
}
