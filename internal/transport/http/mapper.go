package http

import (
	"encoding/json"

	"github.com/podhouse/podhouse-server/internal/core"
	"github.com/podhouse/podhouse-server/internal/proto"
	"github.com/podhouse/podhouse-server/internal/store"
)

// inboundToCommand maps a wire message to a core command. The frame is
// already fully consumed, so every malformed payload comes back as a
// protocol error for the sender; the connection lives on.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.ErrorPayload) {
	switch inbound.Type {
	case proto.InboundJoinRoom, proto.InboundLeaveRoom, proto.InboundTypingStart, proto.InboundTypingStop:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, malformedPayload()
		}
		if data.RoomID == 0 {
			return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Message: "roomId is required"}
		}
		return &core.Command{Kind: roomCommandKinds[inbound.Type], RoomID: data.RoomID}, nil
	case proto.InboundSendMessage:
		var data proto.RoomMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, malformedPayload()
		}
		if data.RoomID == 0 {
			return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Message: "roomId is required"}
		}
		return &core.Command{Kind: core.CommandSendRoomMessage, RoomID: data.RoomID, Content: data.Content}, nil
	case proto.InboundJoinChat, proto.InboundLeaveChat, proto.InboundDMTypingStart, proto.InboundDMTypingStop:
		var data proto.ChatData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, malformedPayload()
		}
		if data.ChatID == 0 {
			return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Message: "chatId is required"}
		}
		return &core.Command{Kind: chatCommandKinds[inbound.Type], ChatID: data.ChatID}, nil
	case proto.InboundSendDM:
		var data proto.ChatMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, malformedPayload()
		}
		if data.ChatID == 0 {
			return nil, &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Message: "chatId is required"}
		}
		return &core.Command{Kind: core.CommandSendChatMessage, ChatID: data.ChatID, Content: data.Content}, nil
	case proto.InboundJoinNotifications:
		return &core.Command{Kind: core.CommandJoinNotifications}, nil
	default:
		return nil, &proto.ErrorPayload{Code: "invalid_message", Message: "unknown message type"}
	}
}

func malformedPayload() *proto.ErrorPayload {
	return &proto.ErrorPayload{Code: core.ErrCodeBadRequest, Message: "malformed payload"}
}

var roomCommandKinds = map[string]core.CommandKind{
	proto.InboundJoinRoom:    core.CommandJoinRoom,
	proto.InboundLeaveRoom:   core.CommandLeaveRoom,
	proto.InboundTypingStart: core.CommandTypingStart,
	proto.InboundTypingStop:  core.CommandTypingStop,
}

var chatCommandKinds = map[string]core.CommandKind{
	proto.InboundJoinChat:      core.CommandJoinChat,
	proto.InboundLeaveChat:     core.CommandLeaveChat,
	proto.InboundDMTypingStart: core.CommandChatTypingStart,
	proto.InboundDMTypingStop:  core.CommandChatTypingStop,
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomJoined:
		return proto.Outbound{Event: proto.EventRoomJoined, Data: proto.RoomAck{RoomID: event.RoomID}}
	case core.EventRoomLeft:
		return proto.Outbound{Event: proto.EventRoomLeft, Data: proto.RoomAck{RoomID: event.RoomID}}
	case core.EventUserJoined:
		return proto.Outbound{Event: proto.EventUserJoined, Data: proto.Presence{RoomID: event.RoomID, User: profileFromIdentity(event.User)}}
	case core.EventUserLeft:
		return proto.Outbound{Event: proto.EventUserLeft, Data: proto.Presence{RoomID: event.RoomID, User: profileFromIdentity(event.User)}}
	case core.EventNewMessage:
		return proto.Outbound{Event: proto.EventNewMessage, Data: messagePayload(event.Message)}
	case core.EventChatJoined:
		return proto.Outbound{Event: proto.EventChatJoined, Data: proto.ChatAck{ChatID: event.ChatID}}
	case core.EventNewDirectMessage:
		return proto.Outbound{Event: proto.EventNewDM, Data: messagePayload(event.Message)}
	case core.EventUserTyping:
		return proto.Outbound{Event: proto.EventUserTyping, Data: proto.Typing{RoomID: event.RoomID, User: profileFromIdentity(event.User)}}
	case core.EventUserStoppedTyping:
		return proto.Outbound{Event: proto.EventUserStoppedTyping, Data: proto.Typing{RoomID: event.RoomID, User: profileFromIdentity(event.User)}}
	case core.EventChatUserTyping:
		return proto.Outbound{Event: proto.EventDMUserTyping, Data: proto.Typing{ChatID: event.ChatID, User: profileFromIdentity(event.User)}}
	case core.EventChatUserStoppedTyping:
		return proto.Outbound{Event: proto.EventDMUserStoppedTyping, Data: proto.Typing{ChatID: event.ChatID, User: profileFromIdentity(event.User)}}
	case core.EventNotificationsJoined:
		return proto.Outbound{Event: proto.EventNotificationsJoined}
	case core.EventNotification:
		return proto.Outbound{Event: proto.EventNotification, Data: event.Payload}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Event: proto.EventError, Data: proto.ErrorPayload{Code: "unknown", Message: "unknown error"}}
		}
		return proto.Outbound{Event: proto.EventError, Data: proto.ErrorPayload{Code: event.Error.Code, Message: event.Error.Message}}
	default:
		return proto.Outbound{Event: proto.EventError, Data: proto.ErrorPayload{Code: "unknown", Message: "unknown event"}}
	}
}

func profileFromIdentity(id *core.Identity) proto.UserProfile {
	if id == nil {
		return proto.UserProfile{}
	}
	return proto.UserProfile{
		ID:          id.UserID,
		Username:    id.Username,
		DisplayName: id.DisplayName,
		AvatarURL:   id.AvatarURL,
	}
}

// messagePayload projects a hydrated message onto the wire shape shared by
// room broadcasts, direct messages, and history pages.
func messagePayload(msg *store.MessageWithSender) proto.MessagePayload {
	p := proto.MessagePayload{
		ID:        msg.ID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Unix(),
		Sender: proto.UserProfile{
			ID:          msg.SenderID,
			Username:    msg.SenderUsername,
			DisplayName: msg.SenderDisplayName,
			AvatarURL:   msg.SenderAvatarURL,
		},
	}
	if msg.RoomID != nil {
		p.RoomID = *msg.RoomID
	}
	if msg.ChatID != nil {
		p.ChatID = *msg.ChatID
	}
	return p
}
