package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"match-lab/errors"
)

type MatchState string

const (
	StateProposed          MatchState = "proposed"
	StateAwaitingResponses MatchState = "awaiting_responses"
	StateAccepted          MatchState = "accepted"
	StateRejected          MatchState = "rejected"
	StateTimedOut          MatchState = "timed_out"
	StateClosed            MatchState = "closed"
)

// Response is one participant's accept/reject decision, carried through
// the single-slot mailbox into the session waiting for it.
type Response struct {
	From     Identity
	Accepted bool
}

// MatchSession coordinates one proposed pairing from proposal to resolution.
//
// Lifecycle: Proposed → AwaitingResponses → {Accepted, Rejected, TimedOut} → Closed.
// A mixed accept/reject resolves as Rejected. Sessions are never persisted;
// once Closed the state is only kept for logging and tests.
type MatchSession struct {
	ID        uuid.UUID
	PlayerA   Identity
	PlayerB   Identity
	CreatedAt time.Time
	// Deadline is the fixed response window measured from creation.
	Deadline time.Time

	mu      sync.Mutex
	state   MatchState
	outcome MatchState
}

func NewMatchSession(a, b Identity, window time.Duration) *MatchSession {
	now := time.Now()
	return &MatchSession{
		ID:        uuid.New(),
		PlayerA:   a,
		PlayerB:   b,
		CreatedAt: now,
		Deadline:  now.Add(window),
		state:     StateProposed,
	}
}

func (s *MatchSession) State() MatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome reports the terminal resolution once the session reached Closed.
func (s *MatchSession) Outcome() (MatchState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.outcome != ""
}

// Opponent returns the other participant of the pairing.
func (s *MatchSession) Opponent(id Identity) (Identity, bool) {
	switch id {
	case s.PlayerA:
		return s.PlayerB, true
	case s.PlayerB:
		return s.PlayerA, true
	default:
		return Anonymous, false
	}
}

// AwaitResponses moves the session out of Proposed once both
// "match found" notifications have been handed to the registry.
func (s *MatchSession) AwaitResponses() error {
	return s.transition(StateProposed, StateAwaitingResponses)
}

// Resolve records both decisions. Only a double accept resolves the
// session as Accepted; any rejection resolves it as Rejected.
func (s *MatchSession) Resolve(aAccepted, bAccepted bool) error {
	next := StateRejected
	if aAccepted && bAccepted {
		next = StateAccepted
	}
	return s.transition(StateAwaitingResponses, next)
}

// TimeOut resolves the session when the deadline elapsed with one or
// both responses missing.
func (s *MatchSession) TimeOut() error {
	return s.transition(StateAwaitingResponses, StateTimedOut)
}

// Close is terminal. After Close no further events are accepted and the
// response channels of both participants must have been torn down.
func (s *MatchSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAccepted, StateRejected, StateTimedOut:
		s.outcome = s.state
		s.state = StateClosed
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, s.state, StateClosed)
	}
}

func (s *MatchSession) transition(from, to MatchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, s.state, to)
	}
	s.state = to
	return nil
}
