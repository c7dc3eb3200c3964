package http

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/podhouse/podhouse-server/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := startTestServer(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	env := startTestServer(t)

	resp := doJSON(t, env, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	var reg AuthResponse
	decodeBody(t, resp, &reg)
	if reg.Token == "" {
		t.Fatal("expected a token from register")
	}

	// Conflicting username.
	resp = doJSON(t, env, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status: %d", resp.StatusCode)
	}

	resp = doJSON(t, env, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}
	var login AuthResponse
	decodeBody(t, resp, &login)
	if login.Token == "" {
		t.Fatal("expected a token from login")
	}

	resp = doJSON(t, env, http.MethodPost, "/api/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status: %d", resp.StatusCode)
	}
}

func TestAuthedRoutesRequireToken(t *testing.T) {
	env := startTestServer(t)

	resp := doJSON(t, env, http.MethodGet, "/api/pods", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = doJSON(t, env, http.MethodGet, "/api/pods", "garbage", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", resp.StatusCode)
	}
}

func TestPodAndRoomEndpoints(t *testing.T) {
	env := startTestServer(t)

	aliceToken, _ := env.registerUser(t, "alice")
	bobToken, bobUser := env.registerUser(t, "bob")

	resp := doJSON(t, env, http.MethodPost, "/api/pods", aliceToken, map[string]string{"name": "my pod"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create pod status: %d", resp.StatusCode)
	}
	var pod PodResponse
	decodeBody(t, resp, &pod)
	if pod.ID == 0 || pod.Name != "my pod" {
		t.Fatalf("unexpected pod: %+v", pod)
	}
	podPath := "/api/pods/" + strconv.FormatInt(pod.ID, 10)

	// Bob joins and can then list rooms.
	resp = doJSON(t, env, http.MethodPost, podPath+"/join", bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("join pod status: %d", resp.StatusCode)
	}

	// Only the owner creates rooms.
	resp = doJSON(t, env, http.MethodPost, podPath+"/rooms", bobToken, map[string]any{"name": "general"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-owner create room status: %d", resp.StatusCode)
	}

	resp = doJSON(t, env, http.MethodPost, podPath+"/rooms", aliceToken, map[string]any{"name": "staff", "isPrivate": true})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room status: %d", resp.StatusCode)
	}
	var room RoomResponse
	decodeBody(t, resp, &room)
	if !room.IsPrivate {
		t.Fatalf("expected private room, got %+v", room)
	}

	resp = doJSON(t, env, http.MethodGet, podPath+"/rooms", bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list rooms status: %d", resp.StatusCode)
	}
	var rooms []RoomResponse
	decodeBody(t, resp, &rooms)
	if len(rooms) != 1 {
		t.Fatalf("expected one room, got %+v", rooms)
	}

	// The owner adds bob to the private room's subset.
	resp = doJSON(t, env, http.MethodPost, "/api/rooms/"+strconv.FormatInt(room.ID, 10)+"/members", aliceToken,
		map[string]int64{"userId": bobUser.ID})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add room member status: %d", resp.StatusCode)
	}

	is, err := env.store.IsRoomMember(context.Background(), room.ID, bobUser.ID)
	if err != nil || !is {
		t.Fatalf("expected bob in room subset, got is=%v err=%v", is, err)
	}

	// Bob leaves again.
	resp = doJSON(t, env, http.MethodPost, podPath+"/leave", bobToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("leave pod status: %d", resp.StatusCode)
	}

	// The owner cannot leave their own pod.
	resp = doJSON(t, env, http.MethodPost, podPath+"/leave", aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("owner leave status: %d", resp.StatusCode)
	}
}

func TestRequestEndpoints(t *testing.T) {
	env := startTestServer(t)

	aliceToken, _ := env.registerUser(t, "alice")
	bobToken, bobUser := env.registerUser(t, "bob")

	resp := doJSON(t, env, http.MethodPost, "/api/requests", aliceToken, map[string]int64{"toUserId": bobUser.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send request status: %d", resp.StatusCode)
	}
	var req RequestResponse
	decodeBody(t, resp, &req)
	if req.Status != "pending" {
		t.Fatalf("unexpected request: %+v", req)
	}

	resp = doJSON(t, env, http.MethodGet, "/api/requests?status=pending", bobToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list requests status: %d", resp.StatusCode)
	}
	var incoming []RequestResponse
	decodeBody(t, resp, &incoming)
	if len(incoming) != 1 || incoming[0].ID != req.ID {
		t.Fatalf("unexpected incoming list: %+v", incoming)
	}

	reqPath := "/api/requests/" + strconv.FormatInt(req.ID, 10)

	// Only the recipient can accept.
	resp = doJSON(t, env, http.MethodPost, reqPath+"/accept", aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("requester accept status: %d", resp.StatusCode)
	}

	resp = doJSON(t, env, http.MethodPost, reqPath+"/accept", bobToken, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("accept status: %d", resp.StatusCode)
	}
	var chat ChatResponse
	decodeBody(t, resp, &chat)
	if chat.ID == 0 {
		t.Fatalf("unexpected chat: %+v", chat)
	}

	resp = doJSON(t, env, http.MethodGet, "/api/chats", aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list chats status: %d", resp.StatusCode)
	}
	var chatList []ChatResponse
	decodeBody(t, resp, &chatList)
	if len(chatList) != 1 || chatList[0].ID != chat.ID {
		t.Fatalf("unexpected chat list: %+v", chatList)
	}
}

func TestRoomHistoryEndpoint(t *testing.T) {
	env := startTestServer(t)
	ctx := context.Background()

	aliceToken, alice := env.registerUser(t, "alice")
	malloryToken, _ := env.registerUser(t, "mallory")

	pod, err := env.store.CreatePod(ctx, "pod", alice.ID)
	if err != nil {
		t.Fatalf("create pod: %v", err)
	}
	room, err := env.store.CreateRoom(ctx, pod.ID, "general", false)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		msg := &store.Message{
			RoomID:    &room.ID,
			SenderID:  alice.ID,
			Content:   "m" + strconv.Itoa(i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := env.store.SaveMessage(ctx, msg); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	roomPath := "/api/rooms/" + strconv.FormatInt(room.ID, 10) + "/messages"

	resp := doJSON(t, env, http.MethodGet, roomPath+"?limit=2", aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status: %d", resp.StatusCode)
	}
	var page HistoryResponse
	decodeBody(t, resp, &page)
	if len(page.Messages) != 2 || page.Messages[0].Content != "m3" || page.Messages[1].Content != "m4" {
		t.Fatalf("expected newest two oldest first, got %+v", page.Messages)
	}

	// Older page via the cursor.
	before := strconv.FormatInt(page.Messages[0].ID, 10)
	resp = doJSON(t, env, http.MethodGet, roomPath+"?limit=2&before="+before, aliceToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cursor history status: %d", resp.StatusCode)
	}
	decodeBody(t, resp, &page)
	if len(page.Messages) != 2 || page.Messages[0].Content != "m1" || page.Messages[1].Content != "m2" {
		t.Fatalf("expected the preceding page, got %+v", page.Messages)
	}

	// Unauthorized access is refused, not emptied.
	resp = doJSON(t, env, http.MethodGet, roomPath, malloryToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("outsider history status: %d", resp.StatusCode)
	}

	resp = doJSON(t, env, http.MethodGet, "/api/rooms/404/messages", aliceToken, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing room history status: %d", resp.StatusCode)
	}
}
