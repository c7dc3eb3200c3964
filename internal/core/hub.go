package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/podhouse/podhouse-server/internal/metrics"
	"github.com/podhouse/podhouse-server/internal/store"
)

// handlers is the dispatch table mapping each command kind to its handler.
// Handlers run on the originating client's session goroutine.
var handlers = map[CommandKind]func(*Hub, *Client, *Command){
	CommandJoinRoom:          (*Hub).handleJoinRoom,
	CommandLeaveRoom:         (*Hub).handleLeaveRoom,
	CommandSendRoomMessage:   (*Hub).handleSendRoomMessage,
	CommandTypingStart:       (*Hub).handleTypingStart,
	CommandTypingStop:        (*Hub).handleTypingStop,
	CommandJoinChat:          (*Hub).handleJoinChat,
	CommandLeaveChat:         (*Hub).handleLeaveChat,
	CommandSendChatMessage:   (*Hub).handleSendChatMessage,
	CommandChatTypingStart:   (*Hub).handleChatTypingStart,
	CommandChatTypingStop:    (*Hub).handleChatTypingStop,
	CommandJoinNotifications: (*Hub).handleJoinNotifications,
}

// Hub is the realtime gateway: it tracks live connections, their channel
// subscriptions, and runs the command handlers. One Hub is constructed at
// process start and handed to every collaborator that publishes into it.
//
// Each registered client gets a session goroutine that consumes its commands
// in order, so a stalled store call stalls that connection only. Channel
// membership is a shared registry guarded by mu; broadcasts are non-blocking
// sends that drop on slow consumers.
type Hub struct {
	store  store.Store
	access *Access
	log    *zerolog.Logger

	mu       sync.RWMutex
	channels map[string]*Channel
	clients  map[string]*Client
	joined   map[*Client]map[string]struct{}
	closed   bool
}

// NewHub creates the gateway hub.
func NewHub(st store.Store, logger *zerolog.Logger) *Hub {
	return &Hub{
		store:    st,
		access:   NewAccess(st),
		log:      logger,
		channels: make(map[string]*Channel),
		clients:  make(map[string]*Client),
		joined:   make(map[*Client]map[string]struct{}),
	}
}

// Run blocks until the context is cancelled, then stops accepting new
// registrations. Live connections are torn down by the transport layer's own
// disconnect bookkeeping.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	if h.log != nil {
		h.log.Info().Msg("hub stopped")
	}
}

// Register adds a client, auto-joins its personal notification channel, and
// starts its session goroutine.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(client.Events)
		return
	}
	h.clients[client.ID] = client
	h.mu.Unlock()

	h.subscribe(client, userChannel(client.Identity.UserID))
	metrics.ConnectionsTotal.Inc()

	go h.session(client)
}

// Unregister closes the client's command stream. Queued commands still drain
// through the session goroutine (an in-flight persistence completes even if
// the client has gone away); teardown runs after the drain.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.ID]
	if ok {
		delete(h.clients, client.ID)
	}
	h.mu.Unlock()

	if ok {
		close(client.Commands)
	}
}

// session consumes the client's commands in order until Unregister closes
// the stream, then tears the connection down.
func (h *Hub) session(client *Client) {
	for cmd := range client.Commands {
		h.dispatch(client, cmd)
	}
	h.teardown(client)
}

func (h *Hub) dispatch(client *Client, cmd *Command) {
	handler, ok := handlers[cmd.Kind]
	if !ok {
		h.sendError(client, &GatewayError{Kind: KindValidation, Code: ErrCodeBadRequest, Message: "unknown command"})
		return
	}
	handler(h, client, cmd)
}

// teardown broadcasts the departure from the client's active room, detaches
// it from every channel, and closes its event stream.
func (h *Hub) teardown(client *Client) {
	h.mu.Lock()
	for name := range h.joined[client] {
		if ch, ok := h.channels[name]; ok {
			ch.Remove(client)
			if ch.Empty() {
				delete(h.channels, name)
			}
		}
	}
	delete(h.joined, client)
	h.mu.Unlock()

	if client.activeRoom != 0 {
		h.broadcast(roomChannel(client.activeRoom), &Event{
			Kind:   EventUserLeft,
			RoomID: client.activeRoom,
			User:   &client.Identity,
		})
		client.activeRoom = 0
	}

	close(client.Events)
	metrics.ConnectionsTotal.Dec()

	if h.log != nil {
		h.log.Debug().Str("client_id", client.ID).Int64("user_id", client.Identity.UserID).Msg("client torn down")
	}
}

// NotifyUser publishes a targeted event to every live connection of a user.
// This is the handle collaborators use to reach a user's notification
// channel; the hub itself never originates payloads.
func (h *Hub) NotifyUser(userID int64, payload any) {
	h.broadcast(userChannel(userID), &Event{
		Kind:    EventNotification,
		Payload: payload,
	})
	metrics.NotificationsTotal.Inc()
}

// ==== command handlers ====

func (h *Hub) handleJoinRoom(client *Client, cmd *Command) {
	room, err := h.access.Room(context.Background(), client.Identity.UserID, cmd.RoomID)
	if err != nil {
		h.reject(client, cmd, err)
		return
	}

	newlyAdded := h.subscribe(client, roomChannel(room.ID))
	client.activeRoom = room.ID

	// Re-joins re-acknowledge without re-announcing.
	if newlyAdded {
		h.broadcastExcept(roomChannel(room.ID), &Event{
			Kind:   EventUserJoined,
			RoomID: room.ID,
			User:   &client.Identity,
		}, client)
	}

	h.send(client, &Event{Kind: EventRoomJoined, RoomID: room.ID})
}

func (h *Hub) handleLeaveRoom(client *Client, cmd *Command) {
	// A leave for any room other than the active one is a silent no-op.
	if client.activeRoom == 0 || client.activeRoom != cmd.RoomID {
		return
	}

	h.unsubscribe(client, roomChannel(cmd.RoomID))
	client.activeRoom = 0

	h.broadcast(roomChannel(cmd.RoomID), &Event{
		Kind:   EventUserLeft,
		RoomID: cmd.RoomID,
		User:   &client.Identity,
	})
	h.send(client, &Event{Kind: EventRoomLeft, RoomID: cmd.RoomID})
}

func (h *Hub) handleSendRoomMessage(client *Client, cmd *Command) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		h.sendError(client, &GatewayError{Kind: KindValidation, Code: ErrCodeEmptyMessage, Message: "message content is empty"})
		return
	}

	// Admission is re-verified at the instant of send; membership may have
	// changed since join.
	ctx := context.Background()
	room, err := h.access.Room(ctx, client.Identity.UserID, cmd.RoomID)
	if err != nil {
		h.reject(client, cmd, err)
		return
	}

	msg := &store.Message{
		RoomID:    &room.ID,
		SenderID:  client.Identity.UserID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.persist(ctx, client, msg, "room"); err != nil {
		return
	}

	h.broadcast(roomChannel(room.ID), &Event{
		Kind:    EventNewMessage,
		RoomID:  room.ID,
		Message: hydrate(msg, &client.Identity),
	})
}

func (h *Hub) handleTypingStart(client *Client, cmd *Command) {
	h.roomTyping(client, cmd, EventUserTyping)
}

func (h *Hub) handleTypingStop(client *Client, cmd *Command) {
	h.roomTyping(client, cmd, EventUserStoppedTyping)
}

// roomTyping fires only for the connection's active room; anything else is
// silently dropped. Typing signals are never persisted and never acked.
func (h *Hub) roomTyping(client *Client, cmd *Command, kind EventKind) {
	if client.activeRoom == 0 || client.activeRoom != cmd.RoomID {
		return
	}
	h.broadcastExcept(roomChannel(cmd.RoomID), &Event{
		Kind:   kind,
		RoomID: cmd.RoomID,
		User:   &client.Identity,
	}, client)
}

func (h *Hub) handleJoinChat(client *Client, cmd *Command) {
	chat, err := h.access.Chat(context.Background(), client.Identity.UserID, cmd.ChatID)
	if err != nil {
		h.reject(client, cmd, err)
		return
	}

	h.subscribe(client, chatChannel(chat.ID))
	h.send(client, &Event{Kind: EventChatJoined, ChatID: chat.ID})
}

// handleLeaveChat is unconditional: there is no active-chat gate and no
// departure announcement for direct chats.
func (h *Hub) handleLeaveChat(client *Client, cmd *Command) {
	h.unsubscribe(client, chatChannel(cmd.ChatID))
}

func (h *Hub) handleSendChatMessage(client *Client, cmd *Command) {
	content := strings.TrimSpace(cmd.Content)
	if content == "" {
		h.sendError(client, &GatewayError{Kind: KindValidation, Code: ErrCodeEmptyMessage, Message: "message content is empty"})
		return
	}

	ctx := context.Background()
	chat, err := h.access.Chat(ctx, client.Identity.UserID, cmd.ChatID)
	if err != nil {
		h.reject(client, cmd, err)
		return
	}

	msg := &store.Message{
		ChatID:    &chat.ID,
		SenderID:  client.Identity.UserID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.persist(ctx, client, msg, "chat"); err != nil {
		return
	}

	// Conversation lists order by last activity.
	if err := h.store.TouchChat(ctx, chat.ID, msg.CreatedAt); err != nil && h.log != nil {
		h.log.Error().Err(err).Int64("chat_id", chat.ID).Msg("advance chat activity")
	}

	h.broadcast(chatChannel(chat.ID), &Event{
		Kind:    EventNewDirectMessage,
		ChatID:  chat.ID,
		Message: hydrate(msg, &client.Identity),
	})
}

func (h *Hub) handleChatTypingStart(client *Client, cmd *Command) {
	h.chatTyping(client, cmd, EventChatUserTyping)
}

func (h *Hub) handleChatTypingStop(client *Client, cmd *Command) {
	h.chatTyping(client, cmd, EventChatUserStoppedTyping)
}

// chatTyping requires only that the connection is attached to the chat
// channel (attachment implies the join-time admission check passed). A
// typing signal for a chat the connection never joined is dropped.
func (h *Hub) chatTyping(client *Client, cmd *Command, kind EventKind) {
	name := chatChannel(cmd.ChatID)

	h.mu.RLock()
	ch, ok := h.channels[name]
	if !ok || !ch.Contains(client) {
		h.mu.RUnlock()
		return
	}
	ch.BroadcastExcept(&Event{
		Kind:   kind,
		ChatID: cmd.ChatID,
		User:   &client.Identity,
	}, client)
	h.mu.RUnlock()
}

func (h *Hub) handleJoinNotifications(client *Client, _ *Command) {
	// Membership was established at registration; this only re-confirms.
	h.subscribe(client, userChannel(client.Identity.UserID))
	h.send(client, &Event{Kind: EventNotificationsJoined})
}

// ==== plumbing ====

// persist writes the message and reports failures to the sender. A failure
// here is terminal for the call: no retry, no queuing.
func (h *Hub) persist(ctx context.Context, client *Client, msg *store.Message, target string) error {
	start := time.Now()
	err := h.store.SaveMessage(ctx, msg)
	metrics.PersistLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if h.log != nil {
			h.log.Error().Err(err).Int64("sender_id", msg.SenderID).Msg("persist message")
		}
		metrics.EventsRejectedTotal.WithLabelValues("internal").Inc()
		h.sendError(client, &GatewayError{Kind: KindInternal, Code: ErrCodeInternal, Message: "something went wrong"})
		return err
	}

	metrics.MessagesTotal.WithLabelValues(target).Inc()
	return nil
}

// hydrate projects the sender's connection identity onto a persisted message
// for broadcast.
func hydrate(msg *store.Message, sender *Identity) *store.MessageWithSender {
	return &store.MessageWithSender{
		Message:           *msg,
		SenderUsername:    sender.Username,
		SenderDisplayName: sender.DisplayName,
		SenderAvatarURL:   sender.AvatarURL,
	}
}

// reject reports a failed admission or lookup to the originating connection
// only. Internal failures are logged with full detail and surfaced
// generically.
func (h *Hub) reject(client *Client, _ *Command, err error) {
	ge := gatewayErrorFor(err)
	if ge.Kind == KindInternal && h.log != nil {
		h.log.Error().Err(err).Str("client_id", client.ID).Msg("command failed")
	}
	metrics.EventsRejectedTotal.WithLabelValues(ge.Kind.rejectReason()).Inc()
	h.send(client, &Event{Kind: EventError, Error: ge})
}

func (h *Hub) sendError(client *Client, ge *GatewayError) {
	metrics.EventsRejectedTotal.WithLabelValues(ge.Kind.rejectReason()).Inc()
	h.send(client, &Event{Kind: EventError, Error: ge})
}

// subscribe attaches the client to a named channel, creating it on first
// use. Returns true if the client was newly added.
func (h *Hub) subscribe(client *Client, name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[name]
	if !ok {
		ch = NewChannel(name)
		h.channels[name] = ch
	}
	added := ch.Add(client)
	if added {
		set, ok := h.joined[client]
		if !ok || set == nil {
			set = make(map[string]struct{})
			h.joined[client] = set
		}
		set[name] = struct{}{}
	}
	return added
}

// unsubscribe detaches the client, dropping the channel once empty.
func (h *Hub) unsubscribe(client *Client, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.channels[name]
	if !ok {
		return
	}
	ch.Remove(client)
	if set := h.joined[client]; set != nil {
		delete(set, name)
	}
	if ch.Empty() {
		delete(h.channels, name)
	}
}

// send delivers an event to a single client without blocking.
func (h *Hub) send(client *Client, event *Event) {
	select {
	case client.Events <- event:
	default:
		// Drop if slow consumer.
	}
}

func (h *Hub) broadcast(name string, event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ch, ok := h.channels[name]; ok {
		ch.Broadcast(event)
	}
}

func (h *Hub) broadcastExcept(name string, event *Event, except *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ch, ok := h.channels[name]; ok {
		ch.BroadcastExcept(event, except)
	}
}
