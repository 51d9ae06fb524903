// Package observability aggregates live counters for the heartbeat
// worker and the debug dashboard.
package observability

import "sync/atomic"

// MatchStats tracks the runtime counters of the matchmaking service.
// All counters are atomic so connection handlers and session resolvers
// can bump them without coordination.
type MatchStats struct {
	activeConnections int64
	matchesProposed   uint64
	matchesAccepted   uint64
	matchesRejected   uint64
	matchesTimedOut   uint64
	droppedDeliveries uint64
	presenceUpdates   uint64
}

func NewMatchStats() *MatchStats {
	return &MatchStats{}
}

func (s *MatchStats) ConnOpened()   { atomic.AddInt64(&s.activeConnections, 1) }
func (s *MatchStats) ConnClosed()   { atomic.AddInt64(&s.activeConnections, -1) }
func (s *MatchStats) IncrProposed() { atomic.AddUint64(&s.matchesProposed, 1) }
func (s *MatchStats) IncrAccepted() { atomic.AddUint64(&s.matchesAccepted, 1) }
func (s *MatchStats) IncrRejected() { atomic.AddUint64(&s.matchesRejected, 1) }
func (s *MatchStats) IncrTimedOut() { atomic.AddUint64(&s.matchesTimedOut, 1) }
func (s *MatchStats) IncrDropped()  { atomic.AddUint64(&s.droppedDeliveries, 1) }
func (s *MatchStats) IncrPresence() { atomic.AddUint64(&s.presenceUpdates, 1) }

func (s *MatchStats) ActiveConnections() int64 {
	return atomic.LoadInt64(&s.activeConnections)
}

// Snapshot returns the counters in the shape the debug server and the
// heartbeat log expect.
func (s *MatchStats) Snapshot() map[string]any {
	return map[string]any{
		"active_connections": atomic.LoadInt64(&s.activeConnections),
		"matches_proposed":   atomic.LoadUint64(&s.matchesProposed),
		"matches_accepted":   atomic.LoadUint64(&s.matchesAccepted),
		"matches_rejected":   atomic.LoadUint64(&s.matchesRejected),
		"matches_timed_out":  atomic.LoadUint64(&s.matchesTimedOut),
		"dropped_deliveries": atomic.LoadUint64(&s.droppedDeliveries),
		"presence_updates":   atomic.LoadUint64(&s.presenceUpdates),
	}
}
