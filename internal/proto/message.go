package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client→server event names.
const (
	InboundJoinRoom          = "join-room"
	InboundLeaveRoom         = "leave-room"
	InboundSendMessage       = "send-message"
	InboundTypingStart       = "typing-start"
	InboundTypingStop        = "typing-stop"
	InboundJoinChat          = "join-chat"
	InboundLeaveChat         = "leave-chat"
	InboundSendDM            = "send-dm"
	InboundDMTypingStart     = "dm-typing-start"
	InboundDMTypingStop      = "dm-typing-stop"
	InboundJoinNotifications = "join-notifications"
)

// Server→client event names.
const (
	EventRoomJoined          = "room-joined"
	EventRoomLeft            = "room-left"
	EventUserJoined          = "user-joined"
	EventUserLeft            = "user-left"
	EventNewMessage          = "new-message"
	EventChatJoined          = "chat-joined"
	EventNewDM               = "new-dm"
	EventUserTyping          = "user-typing"
	EventUserStoppedTyping   = "user-stopped-typing"
	EventDMUserTyping        = "dm-user-typing"
	EventDMUserStoppedTyping = "dm-user-stopped-typing"
	EventNotificationsJoined = "notifications-joined"
	EventNotification        = "notification"
	EventError               = "error"
)

// RoomData addresses a room-scoped command.
type RoomData struct {
	RoomID int64 `json:"roomId"`
}

// RoomMessageData is a chat message for a room.
type RoomMessageData struct {
	RoomID  int64  `json:"roomId"`
	Content string `json:"content"`
}

// ChatData addresses a chat-scoped command.
type ChatData struct {
	ChatID int64 `json:"chatId"`
}

// ChatMessageData is a direct message for a chat.
type ChatMessageData struct {
	ChatID  int64  `json:"chatId"`
	Content string `json:"content"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// UserProfile is the minimal sender/actor projection sent to clients.
type UserProfile struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// RoomAck acknowledges a room join or leave to its initiator.
type RoomAck struct {
	RoomID int64 `json:"roomId"`
}

// ChatAck acknowledges a chat join to its initiator.
type ChatAck struct {
	ChatID int64 `json:"chatId"`
}

// Presence announces a user joining or leaving a room.
type Presence struct {
	RoomID int64       `json:"roomId"`
	User   UserProfile `json:"user"`
}

// Typing announces a transient typing signal.
type Typing struct {
	RoomID int64       `json:"roomId,omitempty"`
	ChatID int64       `json:"chatId,omitempty"`
	User   UserProfile `json:"user"`
}

// MessagePayload is a fully hydrated chat message.
type MessagePayload struct {
	ID        int64       `json:"id"`
	RoomID    int64       `json:"roomId,omitempty"`
	ChatID    int64       `json:"chatId,omitempty"`
	Content   string      `json:"content"`
	CreatedAt int64       `json:"createdAt"`
	Sender    UserProfile `json:"sender"`
}

// ErrorPayload carries a human-readable failure to the originating
// connection only.
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
