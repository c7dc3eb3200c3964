package core

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/podhouse/podhouse-server/internal/store"
	"github.com/podhouse/podhouse-server/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedUser(t *testing.T, st store.Store, username string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), username, username, "x")
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func seedPod(t *testing.T, st store.Store, owner *store.User, members ...*store.User) *store.Pod {
	t.Helper()

	pod, err := st.CreatePod(context.Background(), "test pod", owner.ID)
	if err != nil {
		t.Fatalf("seed pod: %v", err)
	}
	for _, m := range members {
		if err := st.AddPodMember(context.Background(), pod.ID, m.ID); err != nil {
			t.Fatalf("seed pod member: %v", err)
		}
	}
	return pod
}

func seedRoom(t *testing.T, st store.Store, pod *store.Pod, isPrivate bool) *store.Room {
	t.Helper()

	room, err := st.CreateRoom(context.Background(), pod.ID, "test room", isPrivate)
	if err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return room
}

func seedChat(t *testing.T, st store.Store, a, b *store.User) *store.Chat {
	t.Helper()

	chat, err := st.CreateChat(context.Background(), a.ID, b.ID)
	if err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	return chat
}

func identityOf(u *store.User) Identity {
	return Identity{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
}

var connSeq atomic.Int64

func connect(t *testing.T, hub *Hub, u *store.User) *Client {
	t.Helper()

	id := u.Username + "-conn-" + strconv.FormatInt(connSeq.Add(1), 10)
	client := NewClient(id, identityOf(u))
	hub.Register(client)
	return client
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent drains the channel for a short window and fails if an event of
// the given kind shows up.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// countEvents drains the channel for a short window and counts events of the
// given kind.
func countEvents(ch <-chan *Event, kind EventKind) int {
	count := 0
	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				count++
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	return count
}
