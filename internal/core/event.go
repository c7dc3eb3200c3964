package core

import "github.com/podhouse/podhouse-server/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomJoined acknowledges a successful room join to the joiner.
	EventRoomJoined EventKind = iota
	// EventRoomLeft acknowledges a successful room leave to the leaver.
	EventRoomLeft
	// EventUserJoined tells other room occupants that a user joined.
	EventUserJoined
	// EventUserLeft tells other room occupants that a user left.
	EventUserLeft
	// EventNewMessage delivers a persisted room message to room occupants,
	// the sender included.
	EventNewMessage
	// EventChatJoined acknowledges a successful chat join to the joiner.
	EventChatJoined
	// EventNewDirectMessage delivers a persisted direct message to chat
	// occupants, the sender included.
	EventNewDirectMessage
	// EventUserTyping signals typing in a room to other occupants.
	EventUserTyping
	// EventUserStoppedTyping clears the room typing signal.
	EventUserStoppedTyping
	// EventChatUserTyping signals typing in a chat to the other occupant.
	EventChatUserTyping
	// EventChatUserStoppedTyping clears the chat typing signal.
	EventChatUserStoppedTyping
	// EventNotificationsJoined acknowledges notification-channel membership.
	EventNotificationsJoined
	// EventNotification carries a targeted payload published by a
	// collaborator through a per-user channel.
	EventNotification
	// EventError reports a domain error to the originating connection only.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	RoomID  int64
	ChatID  int64
	User    *Identity                // the acting user, for presence/typing events
	Message *store.MessageWithSender // for message events
	Payload any                      // for EventNotification
	Error   *GatewayError            // for EventError
}
