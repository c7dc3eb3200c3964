package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoinRoom attaches the connection to a pod room.
	CommandJoinRoom CommandKind = iota
	// CommandLeaveRoom detaches from the connection's active room.
	CommandLeaveRoom
	// CommandSendRoomMessage persists and broadcasts a room message.
	CommandSendRoomMessage
	// CommandTypingStart signals typing in the active room.
	CommandTypingStart
	// CommandTypingStop clears the typing signal in the active room.
	CommandTypingStop
	// CommandJoinChat attaches the connection to a direct chat.
	CommandJoinChat
	// CommandLeaveChat detaches from a direct chat.
	CommandLeaveChat
	// CommandSendChatMessage persists and broadcasts a direct message.
	CommandSendChatMessage
	// CommandChatTypingStart signals typing in a direct chat.
	CommandChatTypingStart
	// CommandChatTypingStop clears the typing signal in a direct chat.
	CommandChatTypingStop
	// CommandJoinNotifications re-confirms the per-user notification channel.
	CommandJoinNotifications
)

// Command represents an action requested by a client.
type Command struct {
	Kind    CommandKind
	RoomID  int64
	ChatID  int64
	Content string
}
