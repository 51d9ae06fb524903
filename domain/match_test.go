package domain

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"match-lab/errors"
)

func TestMatchSession_DoubleAccept(t *testing.T) {
	req := require.New(t)

	// Given a freshly proposed session
	session := NewMatchSession("alice", "bob", 20*time.Second)
	req.Equal(StateProposed, session.State())

	// When both participants accept
	req.NoError(session.AwaitResponses())
	req.NoError(session.Resolve(true, true))

	// Then the session is accepted and closes cleanly
	req.Equal(StateAccepted, session.State())
	req.NoError(session.Close())

	outcome, ok := session.Outcome()
	req.True(ok)
	req.Equal(StateAccepted, outcome)
}

func TestMatchSession_MixedDecisionIsRejected(t *testing.T) {
	req := require.New(t)
	session := NewMatchSession("alice", "bob", 20*time.Second)
	req.NoError(session.AwaitResponses())

	// When one accepts and the other rejects
	req.NoError(session.Resolve(true, false))

	// Then the resolution is a rejection
	req.Equal(StateRejected, session.State())
}

func TestMatchSession_TimeOut(t *testing.T) {
	req := require.New(t)
	session := NewMatchSession("alice", "bob", time.Millisecond)
	req.NoError(session.AwaitResponses())

	req.NoError(session.TimeOut())
	req.NoError(session.Close())

	outcome, ok := session.Outcome()
	req.True(ok)
	req.Equal(StateTimedOut, outcome)
}

func TestMatchSession_RefusesInvalidTransitions(t *testing.T) {
	req := require.New(t)
	session := NewMatchSession("alice", "bob", 20*time.Second)

	// Resolving before both notifications were handed out is refused
	err := session.Resolve(true, true)
	req.Error(err)
	req.True(stderrors.Is(err, errors.ErrInvalidTransition))

	// Closing a session that never resolved is refused as well
	err = session.Close()
	req.Error(err)
	req.True(stderrors.Is(err, errors.ErrInvalidTransition))

	// And a resolved session accepts no further events
	req.NoError(session.AwaitResponses())
	req.NoError(session.Resolve(false, false))
	req.Error(session.TimeOut())

	_, ok := session.Outcome()
	req.False(ok) // outcome only exists after Close
}

func TestMatchSession_Opponent(t *testing.T) {
	req := require.New(t)
	session := NewMatchSession("alice", "bob", 20*time.Second)

	opponent, ok := session.Opponent("alice")
	req.True(ok)
	req.Equal(Identity("bob"), opponent)

	opponent, ok = session.Opponent("bob")
	req.True(ok)
	req.Equal(Identity("alice"), opponent)

	_, ok = session.Opponent("mallory")
	req.False(ok)
}

func TestInbound_OnlineOrDefault(t *testing.T) {
	req := require.New(t)

	// An absent flag means the user came online
	req.True(Inbound{Type: MessagePresenceUpdate, Username: "alice"}.OnlineOrDefault())

	offline := false
	req.False(Inbound{Type: MessagePresenceUpdate, Username: "alice", Online: &offline}.OnlineOrDefault())
}

func TestChatGroup_OrderIndependent(t *testing.T) {
	req := require.New(t)
	req.Equal(ChatGroup("alice", "bob"), ChatGroup("bob", "alice"))
	req.NotEqual(ChatGroup("alice", "bob"), ChatGroup("alice", "clara"))
}
