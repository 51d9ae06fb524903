package domain

import "fmt"

// Inbound is the schema of every frame a client may send.
// Type and Username are required; a frame missing either is refused
// with a distinct close code by the transport layer.
type Inbound struct {
	Type     string `json:"type" validate:"required"`
	Username string `json:"username" validate:"required"`
	// Online is only meaningful for presence-update frames.
	// When absent the update is treated as "came online".
	Online *bool `json:"online,omitempty"`
	// Message carries the text of a chat relay frame.
	Message string `json:"message,omitempty"`
}

// OnlineOrDefault resolves the optional Online flag, treating an absent
// value as "came online".
func (i Inbound) OnlineOrDefault() bool {
	if i.Online == nil {
		return true
	}
	return *i.Online
}

const (
	MessageAccept         = "accept"
	MessageReject         = "reject"
	MessagePresenceUpdate = "presence-update"
	MessageChat           = "chat"
	MessageClose          = "close"
)

// MatchFound notifies a pooled user that an opponent has been proposed.
type MatchFound struct {
	Message string   `json:"message"`
	Player  Identity `json:"player"`
}

func NewMatchFound(opponent Identity) MatchFound {
	return MatchFound{Message: "Match found", Player: opponent}
}

// DecisionRelay carries one participant's decision to the other
// participant only, once both decisions are known.
type DecisionRelay struct {
	Message string `json:"message"`
}

func NewDecisionRelay(from Identity, accepted bool) DecisionRelay {
	verb := "rejected"
	if accepted {
		verb = "accepted"
	}
	return DecisionRelay{Message: fmt.Sprintf("%s %s the match", from, verb)}
}

// TimeoutMessage is sent to both participants when the response window
// elapses, regardless of which of them failed to respond.
const TimeoutMessage = "Match response timed out"

func NewTimeoutNotice() DecisionRelay {
	return DecisionRelay{Message: TimeoutMessage}
}

// PresenceStatus is fanned out to every member of the presence group
// whenever an identity toggles online/offline.
type PresenceStatus struct {
	Username     Identity `json:"username"`
	OnlineStatus bool     `json:"online_status"`
}

// ChatRelay is the verbatim fan-out of a one-to-one chat frame.
type ChatRelay struct {
	Message  string   `json:"message"`
	Username Identity `json:"username"`
}

// CounterNotice pushes an unread counter to a user's notification channel.
type CounterNotice struct {
	Count int `json:"count"`
}
