package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/podhouse/podhouse-server/internal/store"
)

// Access answers "is this user allowed to participate" against the current
// membership graph. It is evaluated on every room/chat-scoped event and never
// caches results: membership may change between events, and the current-state
// answer is the correct one.
type Access struct {
	store store.Store
}

// NewAccess builds an authorization resolver backed by the given store.
func NewAccess(st store.Store) *Access {
	return &Access{store: st}
}

// Room resolves the room and checks admission: the owning pod's owner always
// passes; pod members pass unless the room restricts to an explicit member
// subset they are not part of. Absent rooms yield ErrRoomNotFound, which is
// distinct from ErrNotPodMember.
func (a *Access) Room(ctx context.Context, userID, roomID int64) (*store.Room, error) {
	room, err := a.store.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("lookup room: %w", err)
	}

	pod, err := a.store.GetPodByID(ctx, room.PodID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("lookup pod: %w", err)
	}

	if pod.OwnerID == userID {
		return room, nil
	}

	isMember, err := a.store.IsPodMember(ctx, pod.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("check pod membership: %w", err)
	}
	if !isMember {
		return nil, ErrNotPodMember
	}

	// A private room narrows the pod audience to its member subset.
	if room.IsPrivate {
		inSubset, err := a.store.IsRoomMember(ctx, room.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("check room membership: %w", err)
		}
		if !inSubset {
			return nil, ErrNotPodMember
		}
	}

	return room, nil
}

// Chat resolves the chat and checks that the user is one of its two
// participants. Absent chats yield ErrChatNotFound.
func (a *Access) Chat(ctx context.Context, userID, chatID int64) (*store.Chat, error) {
	chat, err := a.store.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("lookup chat: %w", err)
	}

	if chat.UserAID != userID && chat.UserBID != userID {
		return nil, ErrNotParticipant
	}

	return chat, nil
}
