package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by lookups when the requested row does not exist.
// Callers use it to distinguish "absent" from storage failures.
var ErrNotFound = errors.New("not found")

// Role names for users.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	AvatarURL    string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// Pod is a community with exactly one owner and zero or more members.
type Pod struct {
	ID        int64
	Name      string
	OwnerID   int64
	CreatedAt time.Time
}

// Room is a pod-scoped chat channel. A private room restricts the pod
// audience to an explicit member subset.
type Room struct {
	ID        int64
	PodID     int64
	Name      string
	IsPrivate bool
	CreatedAt time.Time
}

// Chat is a private two-party conversation. LastMessageAt orders
// conversation lists and is advanced on every direct message.
type Chat struct {
	ID            int64
	UserAID       int64
	UserBID       int64
	LastMessageAt time.Time
	CreatedAt     time.Time
}

// ChatRequestStatus is the lifecycle state of a message request.
type ChatRequestStatus string

const (
	ChatRequestPending  ChatRequestStatus = "pending"
	ChatRequestAccepted ChatRequestStatus = "accepted"
	ChatRequestDeclined ChatRequestStatus = "declined"
)

// ChatRequest is a pending invitation to open a direct chat.
type ChatRequest struct {
	ID         int64
	FromUserID int64
	ToUserID   int64
	Status     ChatRequestStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Message is an immutable chat message. Exactly one of RoomID/ChatID is set.
type Message struct {
	ID        int64
	RoomID    *int64
	ChatID    *int64
	SenderID  int64
	Content   string
	CreatedAt time.Time
}

// MessageWithSender is a message hydrated with the sender's profile
// projection, as broadcast and as served by history pagination.
type MessageWithSender struct {
	Message
	SenderUsername    string
	SenderDisplayName string
	SenderAvatarURL   string
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, displayName, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// PodStore handles pod and pod-membership persistence.
type PodStore interface {
	// CreatePod creates a new pod owned by ownerID.
	CreatePod(ctx context.Context, name string, ownerID int64) (*Pod, error)

	// GetPodByID retrieves a pod by ID.
	GetPodByID(ctx context.Context, id int64) (*Pod, error)

	// ListPods lists pods the user owns or is a member of.
	ListPods(ctx context.Context, userID int64) ([]*Pod, error)

	// AddPodMember adds a user to a pod. Adding twice is a no-op.
	AddPodMember(ctx context.Context, podID, userID int64) error

	// RemovePodMember removes a user from a pod.
	RemovePodMember(ctx context.Context, podID, userID int64) error

	// IsPodMember checks pod membership (ownership is tracked separately).
	IsPodMember(ctx context.Context, podID, userID int64) (bool, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a room inside a pod.
	CreateRoom(ctx context.Context, podID int64, name string, isPrivate bool) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// ListRooms lists rooms of a pod.
	ListRooms(ctx context.Context, podID int64) ([]*Room, error)

	// AddRoomMember adds a user to a private room's member subset.
	AddRoomMember(ctx context.Context, roomID, userID int64) error

	// IsRoomMember checks private-room subset membership.
	IsRoomMember(ctx context.Context, roomID, userID int64) (bool, error)
}

// ChatStore handles direct-chat persistence.
type ChatStore interface {
	// CreateChat creates a two-party chat. The participant pair is unique.
	CreateChat(ctx context.Context, userAID, userBID int64) (*Chat, error)

	// GetChatByID retrieves a chat by ID.
	GetChatByID(ctx context.Context, id int64) (*Chat, error)

	// GetChatByParticipants retrieves the chat between two users, in either order.
	GetChatByParticipants(ctx context.Context, userAID, userBID int64) (*Chat, error)

	// ListChats lists a user's chats ordered by last activity, newest first.
	ListChats(ctx context.Context, userID int64) ([]*Chat, error)

	// TouchChat advances a chat's last-activity timestamp.
	TouchChat(ctx context.Context, chatID int64, at time.Time) error

	// CreateChatRequest creates a pending message request.
	CreateChatRequest(ctx context.Context, fromUserID, toUserID int64) (*ChatRequest, error)

	// GetChatRequest retrieves a request by ID.
	GetChatRequest(ctx context.Context, id int64) (*ChatRequest, error)

	// GetChatRequestBetween retrieves a request between two users, in either direction.
	GetChatRequestBetween(ctx context.Context, userAID, userBID int64) (*ChatRequest, error)

	// UpdateChatRequestStatus moves a request through its lifecycle.
	UpdateChatRequestStatus(ctx context.Context, id int64, status ChatRequestStatus) error

	// ListChatRequests lists requests addressed to a user, optionally by status.
	ListChatRequests(ctx context.Context, toUserID int64, status *ChatRequestStatus) ([]*ChatRequest, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessageByID retrieves a message by ID.
	GetMessageByID(ctx context.Context, id int64) (*Message, error)

	// ListRoomMessages retrieves room messages hydrated with sender profiles.
	// The page holds the newest messages strictly older than the before
	// cursor (or the newest overall when before is nil), returned
	// oldest-first. Ordering key is (created_at, id).
	ListRoomMessages(ctx context.Context, roomID int64, limit int, before *Message) ([]*MessageWithSender, error)

	// ListChatMessages is ListRoomMessages for a direct chat.
	ListChatMessages(ctx context.Context, chatID int64, limit int, before *Message) ([]*MessageWithSender, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	PodStore
	RoomStore
	ChatStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
