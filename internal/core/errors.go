package core

import "errors"

// ErrorKind buckets domain errors by propagation policy.
type ErrorKind int

const (
	// KindNotFound covers absent rooms, chats, messages, and users.
	KindNotFound ErrorKind = iota
	// KindUnauthorized covers failed admission predicates.
	KindUnauthorized
	// KindValidation covers empty content and malformed payloads.
	KindValidation
	// KindInternal covers backing-store and unexpected failures. Detail is
	// logged, never sent to the client.
	KindInternal
)

// Error codes sent over the wire.
const (
	ErrCodeRoomNotFound   = "room_not_found"
	ErrCodeChatNotFound   = "chat_not_found"
	ErrCodeNotPodMember   = "not_a_member"
	ErrCodeNotParticipant = "not_a_participant"
	ErrCodeEmptyMessage   = "empty_message"
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInternal       = "internal_error"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotPodMember   = errors.New("not a member of this pod")
	ErrNotParticipant = errors.New("not a participant of this chat")
)

// GatewayError wraps a kind, a code, and a human-readable message.
type GatewayError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	return e.Message
}

// gatewayErrorFor maps domain sentinels to wire errors. Anything unrecognized
// is an internal failure reported with a generic message.
func gatewayErrorFor(err error) *GatewayError {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return &GatewayError{Kind: KindNotFound, Code: ErrCodeRoomNotFound, Message: "room not found"}
	case errors.Is(err, ErrChatNotFound):
		return &GatewayError{Kind: KindNotFound, Code: ErrCodeChatNotFound, Message: "chat not found"}
	case errors.Is(err, ErrNotPodMember):
		return &GatewayError{Kind: KindUnauthorized, Code: ErrCodeNotPodMember, Message: "you are not a member of this pod"}
	case errors.Is(err, ErrNotParticipant):
		return &GatewayError{Kind: KindUnauthorized, Code: ErrCodeNotParticipant, Message: "you are not a participant of this chat"}
	default:
		return &GatewayError{Kind: KindInternal, Code: ErrCodeInternal, Message: "something went wrong"}
	}
}

// rejectReason labels metrics for rejected commands.
func (k ErrorKind) rejectReason() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	default:
		return "internal"
	}
}
