// Package event defines the in-process events flowing between the
// connection handlers and the fanout worker.
package event

import (
	"time"

	"match-lab/domain"
)

type Event interface {
	Name() string
}

// PresenceChanged is emitted after a presence write-through and consumed
// by the fanout worker, which broadcasts it to the presence group.
type PresenceChanged struct {
	Username domain.Identity
	Online   bool
	At       time.Time
}

func (e PresenceChanged) Name() string { return "presence_changed" }
