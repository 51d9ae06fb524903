package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"match-lab/contract"
	"match-lab/domain"
	"match-lab/observability"
)

// MatchmakerWorker pairs waiting identities and supervises each
// pairing's response collection.
//
// A single goroutine (Run) owns the waiting pool and consumes join and
// leave commands from channels, so enqueue and pair-dequeue execute in
// one consistency domain: two identities joining simultaneously can
// never be dequeued into two different sessions, and no identity is
// paired twice.
//
// Each created session is resolved by its own goroutine, independent of
// both participants' connection handlers. That detachment is what lets
// a decision arriving on one connection wake logic that must notify a
// different connection, while its own read loop stays blocked on the
// next inbound frame.
type MatchmakerWorker struct {
	log       *slog.Logger
	registry  contract.IRegistry
	responses *ResponseRegistry
	pool      *WaitingPool
	stats     *observability.MatchStats
	window    time.Duration

	joins  chan domain.Identity
	leaves chan domain.Identity

	resolvers sync.WaitGroup
}

func NewMatchmakerWorker(log *slog.Logger, registry contract.IRegistry,
	responses *ResponseRegistry, stats *observability.MatchStats,
	window time.Duration, bufferSize int) *MatchmakerWorker {
	return &MatchmakerWorker{
		log:       log,
		registry:  registry,
		responses: responses,
		pool:      NewWaitingPool(),
		stats:     stats,
		window:    window,
		joins:     make(chan domain.Identity, bufferSize),
		leaves:    make(chan domain.Identity, bufferSize),
	}
}

// Join hands an identity to the pool owner. Pairing is triggered inside
// Run; the caller never blocks on the outcome of the match it may have
// just enabled.
func (w *MatchmakerWorker) Join(ctx context.Context, id domain.Identity) error {
	select {
	case w.joins <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leave removes an identity from the pool, typically on disconnect
// while still waiting. Unknown identities are a no-op.
func (w *MatchmakerWorker) Leave(ctx context.Context, id domain.Identity) error {
	select {
	case w.leaves <- id:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PostResponse routes an accept/reject decision to the mailbox of the
// sending identity. A decision from an identity with no open mailbox is
// discarded and reported as such.
func (w *MatchmakerWorker) PostResponse(id domain.Identity, accepted bool) bool {
	return w.responses.Post(id, domain.Response{From: id, Accepted: accepted})
}

// Waiting exposes the current pool size for the heartbeat snapshot.
func (w *MatchmakerWorker) Waiting() int {
	return w.pool.Len()
}

func (w *MatchmakerWorker) Run(ctx context.Context) error {
	defer w.resolvers.Wait()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping matchmaker, waiting for in-flight sessions")
			return ctx.Err()
		case id := <-w.joins:
			if !w.pool.Enqueue(id) {
				w.log.Debug("Identity already waiting, enqueue ignored", "identity", id)
				continue
			}
			w.drain(ctx)
		case id := <-w.leaves:
			w.pool.Remove(id)
		}
	}
}

// drain pairs the two oldest entries until fewer than two remain, so a
// burst of joins is consumed deterministically, oldest first.
func (w *MatchmakerWorker) drain(ctx context.Context) {
	for {
		a, b, ok := w.pool.DequeuePair()
		if !ok {
			return
		}
		w.propose(ctx, a, b)
	}
}

// propose opens a session for a pair: leases both mailboxes, notifies
// both participants, and detaches the supervised response wait.
//
// If either identity still holds a mailbox from an unresolved session,
// the pairing is rolled back: the other identity keeps its seniority at
// the head of the pool and the stale entry is skipped.
func (w *MatchmakerWorker) propose(ctx context.Context, a, b domain.Identity) {
	chA, err := w.responses.Open(a)
	if err != nil {
		w.log.Warn("Pairing rejected, response still pending", "identity", a)
		w.pool.PushFront(b)
		return
	}
	chB, err := w.responses.Open(b)
	if err != nil {
		w.log.Warn("Pairing rejected, response still pending", "identity", b)
		w.responses.Close(a)
		w.pool.PushFront(a)
		return
	}

	session := domain.NewMatchSession(a, b, w.window)
	w.deliver(a, domain.NewMatchFound(b))
	w.deliver(b, domain.NewMatchFound(a))
	_ = session.AwaitResponses()
	w.stats.IncrProposed()
	w.log.Info("Match proposed", "session", session.ID, "player_a", a, "player_b", b)

	w.resolvers.Add(1)
	go w.resolve(ctx, session, chA, chB)
}

// resolve collects both decisions under the session deadline and pushes
// the terminal notifications. It runs outside the matchmaker loop so a
// slow pair never delays further pairings.
func (w *MatchmakerWorker) resolve(ctx context.Context, session *domain.MatchSession,
	chA, chB <-chan domain.Response) {
	defer w.resolvers.Done()
	defer w.responses.Close(session.PlayerA)
	defer w.responses.Close(session.PlayerB)

	timer := time.NewTimer(time.Until(session.Deadline))
	defer timer.Stop()

	var respA, respB *domain.Response
	for respA == nil || respB == nil {
		select {
		case r := <-chA:
			respA = &r
			chA = nil // slot consumed; ignore anything arriving later
		case r := <-chB:
			respB = &r
			chB = nil
		case <-timer.C:
			// The deadline is a first-class outcome: both participants
			// are informed uniformly, whichever of them went silent.
			_ = session.TimeOut()
			w.deliver(session.PlayerA, domain.NewTimeoutNotice())
			w.deliver(session.PlayerB, domain.NewTimeoutNotice())
			_ = session.Close()
			w.stats.IncrTimedOut()
			w.log.Info("Match timed out", "session", session.ID,
				"player_a", session.PlayerA, "player_b", session.PlayerB)
			return
		case <-ctx.Done():
			// Shutdown cancels the pending waits cleanly; it is
			// observed and logged, never surfaced as an error.
			_ = session.TimeOut()
			_ = session.Close()
			w.log.Debug("Session wait cancelled on shutdown", "session", session.ID)
			return
		}
	}

	_ = session.Resolve(respA.Accepted, respB.Accepted)
	// Each decision is relayed to the other participant only, and only
	// once both decisions are known. Partial relays are never sent.
	w.deliver(session.PlayerB, domain.NewDecisionRelay(session.PlayerA, respA.Accepted))
	w.deliver(session.PlayerA, domain.NewDecisionRelay(session.PlayerB, respB.Accepted))
	if respA.Accepted && respB.Accepted {
		w.stats.IncrAccepted()
	} else {
		w.stats.IncrRejected()
	}
	_ = session.Close()
	w.log.Info("Match resolved", "session", session.ID, "state", session.State(),
		"player_a_accepted", respA.Accepted, "player_b_accepted", respB.Accepted)
}

// deliver marshals and pushes a frame, best-effort. A missing or
// saturated connection only shows up in the dropped-deliveries counter.
func (w *MatchmakerWorker) deliver(id domain.Identity, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		w.log.Error("Frame marshalling failed", "error", err)
		return
	}
	if !w.registry.Deliver(id, payload) {
		w.stats.IncrDropped()
		w.log.Debug("Delivery dropped, no live connection", "identity", id)
	}
}
