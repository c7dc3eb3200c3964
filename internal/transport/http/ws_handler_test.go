package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/podhouse/podhouse-server/internal/proto"
)

func TestWebSocketRequiresToken(t *testing.T) {
	env := startTestServer(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/ws")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp, err = env.ts.Client().Get(env.ts.URL + "/ws?token=garbage")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", resp.StatusCode)
	}
}

func TestWebSocketRoomConversation(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceToken, alice := env.registerUser(t, "alice")
	bobToken, bob := env.registerUser(t, "bob")

	pod, err := env.store.CreatePod(ctx, "pod", alice.ID)
	if err != nil {
		t.Fatalf("create pod: %v", err)
	}
	if err := env.store.AddPodMember(ctx, pod.ID, bob.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	room, err := env.store.CreateRoom(ctx, pod.ID, "general", false)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	connA, _, err := websocket.Dial(ctx, env.wsURL(aliceToken), nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	connB, _, err := websocket.Dial(ctx, env.wsURL(bobToken), nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, connA, proto.InboundJoinRoom, proto.RoomData{RoomID: room.ID})
	readUntil(ctx, t, connA, proto.EventRoomJoined)

	send(ctx, t, connB, proto.InboundJoinRoom, proto.RoomData{RoomID: room.ID})
	readUntil(ctx, t, connB, proto.EventRoomJoined)

	// Alice sees bob arrive.
	joined := readUntil(ctx, t, connA, proto.EventUserJoined)
	var presence proto.Presence
	if err := json.Unmarshal(joined.Data, &presence); err != nil {
		t.Fatalf("decode presence: %v", err)
	}
	if presence.User.Username != "bob" || presence.RoomID != room.ID {
		t.Fatalf("unexpected presence: %+v", presence)
	}

	send(ctx, t, connA, proto.InboundSendMessage, proto.RoomMessageData{RoomID: room.ID, Content: "hello"})

	frame := readUntil(ctx, t, connB, proto.EventNewMessage)
	var msg proto.MessagePayload
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.Content != "hello" || msg.Sender.Username != "alice" || msg.ID == 0 {
		t.Fatalf("unexpected message: %+v", msg)
	}

	// The sender gets the same persisted message echoed back.
	echo := readUntil(ctx, t, connA, proto.EventNewMessage)
	var echoMsg proto.MessagePayload
	if err := json.Unmarshal(echo.Data, &echoMsg); err != nil {
		t.Fatalf("decode echo: %v", err)
	}
	if echoMsg.ID != msg.ID {
		t.Fatalf("echo id %d != broadcast id %d", echoMsg.ID, msg.ID)
	}

	// Typing reaches the other side only.
	send(ctx, t, connA, proto.InboundTypingStart, proto.RoomData{RoomID: room.ID})
	readUntil(ctx, t, connB, proto.EventUserTyping)
}

func TestWebSocketMalformedPayloadKeepsConnection(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, user := env.registerUser(t, "alice")

	pod, err := env.store.CreatePod(ctx, "pod", user.ID)
	if err != nil {
		t.Fatalf("create pod: %v", err)
	}
	room, err := env.store.CreateRoom(ctx, pod.ID, "general", false)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	conn, _, err := websocket.Dial(ctx, env.wsURL(token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// roomId of the wrong JSON type must come back as a protocol error,
	// not a closed connection.
	send(ctx, t, conn, proto.InboundJoinRoom, map[string]any{"roomId": "not-a-number"})

	frame := readUntil(ctx, t, conn, proto.EventError)
	var errPayload proto.ErrorPayload
	if err := json.Unmarshal(frame.Data, &errPayload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if errPayload.Code != "bad_request" {
		t.Fatalf("unexpected error payload: %+v", errPayload)
	}

	// The same connection still serves well-formed commands.
	send(ctx, t, conn, proto.InboundJoinRoom, proto.RoomData{RoomID: room.ID})
	readUntil(ctx, t, conn, proto.EventRoomJoined)
}

func TestWebSocketRejectsUnknownType(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, _ := env.registerUser(t, "alice")

	conn, _, err := websocket.Dial(ctx, env.wsURL(token), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, conn, "does-not-exist", map[string]any{})

	frame := readUntil(ctx, t, conn, proto.EventError)
	var errPayload proto.ErrorPayload
	if err := json.Unmarshal(frame.Data, &errPayload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if errPayload.Code != "invalid_message" {
		t.Fatalf("unexpected error payload: %+v", errPayload)
	}
}

func TestWebSocketUnauthorizedJoinSurfacesError(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, alice := env.registerUser(t, "alice")
	malloryToken, _ := env.registerUser(t, "mallory")

	pod, err := env.store.CreatePod(ctx, "pod", alice.ID)
	if err != nil {
		t.Fatalf("create pod: %v", err)
	}
	room, err := env.store.CreateRoom(ctx, pod.ID, "general", false)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	conn, _, err := websocket.Dial(ctx, env.wsURL(malloryToken), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, conn, proto.InboundJoinRoom, proto.RoomData{RoomID: room.ID})

	frame := readUntil(ctx, t, conn, proto.EventError)
	var errPayload proto.ErrorPayload
	if err := json.Unmarshal(frame.Data, &errPayload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if errPayload.Code != "not_a_member" {
		t.Fatalf("unexpected error payload: %+v", errPayload)
	}
}

func TestWebSocketDirectMessages(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceToken, alice := env.registerUser(t, "alice")
	bobToken, bob := env.registerUser(t, "bob")

	chat, err := env.store.CreateChat(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}

	connA, _, err := websocket.Dial(ctx, env.wsURL(aliceToken), nil)
	if err != nil {
		t.Fatalf("dial alice: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	connB, _, err := websocket.Dial(ctx, env.wsURL(bobToken), nil)
	if err != nil {
		t.Fatalf("dial bob: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, connA, proto.InboundJoinChat, proto.ChatData{ChatID: chat.ID})
	readUntil(ctx, t, connA, proto.EventChatJoined)
	send(ctx, t, connB, proto.InboundJoinChat, proto.ChatData{ChatID: chat.ID})
	readUntil(ctx, t, connB, proto.EventChatJoined)

	send(ctx, t, connA, proto.InboundSendDM, proto.ChatMessageData{ChatID: chat.ID, Content: "psst"})

	frame := readUntil(ctx, t, connB, proto.EventNewDM)
	var msg proto.MessagePayload
	if err := json.Unmarshal(frame.Data, &msg); err != nil {
		t.Fatalf("decode dm: %v", err)
	}
	if msg.Content != "psst" || msg.ChatID != chat.ID || msg.Sender.Username != "alice" {
		t.Fatalf("unexpected dm: %+v", msg)
	}
}

func TestWebSocketNotificationOnAcceptedRequest(t *testing.T) {
	env := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceToken, alice := env.registerUser(t, "alice")
	bobToken, bob := env.registerUser(t, "bob")

	conn, _, err := websocket.Dial(ctx, env.wsURL(aliceToken), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	send(ctx, t, conn, proto.InboundJoinNotifications, map[string]any{})
	readUntil(ctx, t, conn, proto.EventNotificationsJoined)

	// Bob accepts alice's request through the REST surface; alice hears
	// about it on her notification channel.
	req, err := env.store.CreateChatRequest(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	resp := doJSON(t, env, http.MethodPost, "/api/requests/"+strconv.FormatInt(req.ID, 10)+"/accept", bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("accept failed with status %d", resp.StatusCode)
	}

	frame := readUntil(ctx, t, conn, proto.EventNotification)
	var payload struct {
		Kind     string `json:"kind"`
		ChatID   int64  `json:"chatId"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		t.Fatalf("decode notification: %v", err)
	}
	if payload.Kind != "chat-request-accepted" || payload.ChatID == 0 {
		t.Fatalf("unexpected notification: %+v", payload)
	}
}
