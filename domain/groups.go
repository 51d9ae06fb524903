package domain

import "fmt"

// PresenceGroup is the shared broadcast group every connection joins;
// a single presence change fans out to all of its members.
const PresenceGroup = "online_status"

// ChatGroup derives the room key of a one-to-one chat thread.
// The key is order-independent so both peers land in the same group.
func ChatGroup(a, b Identity) string {
	if a > b {
		return fmt.Sprintf("chat_%s-%s", a, b)
	}
	return fmt.Sprintf("chat_%s-%s", b, a)
}

// NotifyGroup is the per-user counter/notification channel.
func NotifyGroup(id Identity) string {
	return fmt.Sprintf("notify_%s", id)
}
