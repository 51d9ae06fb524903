package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"match-lab/contract"
	"match-lab/domain"
	"match-lab/domain/event"
	"match-lab/observability"
)

// PresenceFanout broadcasts presence changes to every member of the
// shared presence group.
//
// It provides best-effort fan-out with no guarantees regarding
// delivery, ordering, durability, or retries: a member without a live
// connection simply misses the update. This path is distinct from the
// write-through to the presence store, which happens in the service
// before the event is emitted.
type PresenceFanout struct {
	log      *slog.Logger
	registry contract.IRegistry
	events   <-chan event.Event
	stats    *observability.MatchStats
}

func NewPresenceFanout(log *slog.Logger, registry contract.IRegistry,
	events <-chan event.Event, stats *observability.MatchStats) *PresenceFanout {
	return &PresenceFanout{log: log, registry: registry, events: events, stats: stats}
}

func (w *PresenceFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping presence fanout")
			return ctx.Err()
		case evt := <-w.events:
			w.fanout(evt)
		}
	}
}

func (w *PresenceFanout) fanout(evt event.Event) {
	switch e := evt.(type) {
	case event.PresenceChanged:
		payload, err := json.Marshal(domain.PresenceStatus{
			Username:     e.Username,
			OnlineStatus: e.Online,
		})
		if err != nil {
			w.log.Error("Presence frame marshalling failed", "error", err)
			return
		}
		delivered := w.registry.Broadcast(domain.PresenceGroup, payload)
		w.stats.IncrPresence()
		w.log.Debug("Presence change broadcast",
			"username", e.Username, "online", e.Online,
			"delivered", delivered, "lag", time.Since(e.At))
	default:
		w.log.Debug("Unhandled event", "name", evt.Name())
	}
}
