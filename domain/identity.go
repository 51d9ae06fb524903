// Package domain contains core concepts of the matchmaking system:
// identities, match sessions, and the wire-level message schema.
// No runtime, network, or UI logic should be added here.
package domain

import "github.com/google/uuid"

// Identity is the unique handle identifying a user across connections.
// It is used as a map key throughout the runtime.
type Identity string

// Anonymous marks a connection whose token could not be resolved to a user.
const Anonymous Identity = ""

func (i Identity) IsAnonymous() bool {
	return i == Anonymous
}

func (i Identity) String() string {
	return string(i)
}

// GuestIdentity issues an ephemeral handle for an anonymous connection.
// Guests can observe presence broadcasts but never enter the waiting pool,
// so the handle only has to be unique, not durable.
func GuestIdentity() Identity {
	return Identity("guest:" + uuid.NewString())
}
