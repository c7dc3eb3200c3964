// Package history serves bounded, cursor-based slices of past messages. It
// is HTTP-served rather than socket-served but shares the gateway's data
// model and ordering contract: ascending (created_at, id).
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/podhouse/podhouse-server/internal/core"
	"github.com/podhouse/podhouse-server/internal/store"
)

// Service resolves history pages with the same admission rules as the
// realtime gateway.
type Service struct {
	store        store.Store
	access       *core.Access
	defaultLimit int
	maxLimit     int
}

// New creates the pagination resolver. defaultLimit applies when the caller
// requests no page size; maxLimit caps whatever was requested.
func New(st store.Store, access *core.Access, defaultLimit, maxLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &Service{
		store:        st,
		access:       access,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// RoomPage returns messages of a room strictly older than the cursor message
// (newest page when beforeID is nil), oldest-first, capped at limit. A cursor
// that does not resolve to a message of this room is ignored. Admission
// mirrors the gateway: pod ownership or membership required.
func (s *Service) RoomPage(ctx context.Context, userID, roomID int64, beforeID *int64, limit int) ([]*store.MessageWithSender, error) {
	if _, err := s.access.Room(ctx, userID, roomID); err != nil {
		return nil, err
	}

	before, err := s.resolveCursor(ctx, beforeID, func(m *store.Message) bool {
		return m.RoomID != nil && *m.RoomID == roomID
	})
	if err != nil {
		return nil, err
	}

	messages, err := s.store.ListRoomMessages(ctx, roomID, s.clamp(limit), before)
	if err != nil {
		return nil, fmt.Errorf("list room messages: %w", err)
	}
	return messages, nil
}

// ChatPage is RoomPage for a direct chat, with participant admission.
func (s *Service) ChatPage(ctx context.Context, userID, chatID int64, beforeID *int64, limit int) ([]*store.MessageWithSender, error) {
	if _, err := s.access.Chat(ctx, userID, chatID); err != nil {
		return nil, err
	}

	before, err := s.resolveCursor(ctx, beforeID, func(m *store.Message) bool {
		return m.ChatID != nil && *m.ChatID == chatID
	})
	if err != nil {
		return nil, err
	}

	messages, err := s.store.ListChatMessages(ctx, chatID, s.clamp(limit), before)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	return messages, nil
}

// resolveCursor loads the cursor message. A missing cursor, or one that
// belongs elsewhere, is ignored and the newest page is served instead.
func (s *Service) resolveCursor(ctx context.Context, beforeID *int64, belongs func(*store.Message) bool) (*store.Message, error) {
	if beforeID == nil {
		return nil, nil
	}

	msg, err := s.store.GetMessageByID(ctx, *beforeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve cursor: %w", err)
	}
	if !belongs(msg) {
		return nil, nil
	}
	return msg, nil
}

func (s *Service) clamp(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}
