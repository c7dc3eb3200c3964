// Package chats manages the message-request lifecycle. A direct chat comes
// into existence only as the side effect of an accepted request; the gateway
// operates on the resulting Chat rows.
package chats

import (
	"context"
	"errors"
	"fmt"

	"github.com/podhouse/podhouse-server/internal/store"
)

// Common errors for message-request operations.
var (
	ErrCannotRequestSelf    = errors.New("cannot send a message request to yourself")
	ErrAlreadyChatting      = errors.New("chat already exists")
	ErrRequestAlreadyExists = errors.New("message request already exists")
	ErrRequestNotFound      = errors.New("message request not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotRecipient         = errors.New("only the recipient can answer a request")
	ErrRequestClosed        = errors.New("message request already answered")
)

// Notifier publishes targeted events to a user's live connections. The
// gateway hub satisfies it.
type Notifier interface {
	NotifyUser(userID int64, payload any)
}

// RequestAccepted is pushed to the requester's notification channel when
// the recipient accepts.
type RequestAccepted struct {
	Kind     string `json:"kind"`
	ChatID   int64  `json:"chatId"`
	Username string `json:"username"`
}

// Service provides message-request business logic.
type Service struct {
	store    store.Store
	notifier Notifier
}

// New creates a message-request service. notifier may not be nil.
func New(st store.Store, notifier Notifier) *Service {
	return &Service{
		store:    st,
		notifier: notifier,
	}
}

// SendRequest opens a pending message request from one user to another.
func (s *Service) SendRequest(ctx context.Context, fromUserID, toUserID int64) (*store.ChatRequest, error) {
	if fromUserID == toUserID {
		return nil, ErrCannotRequestSelf
	}

	if _, err := s.store.GetUserByID(ctx, toUserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup recipient: %w", err)
	}

	// An existing chat makes a request pointless.
	if _, err := s.store.GetChatByParticipants(ctx, fromUserID, toUserID); err == nil {
		return nil, ErrAlreadyChatting
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup chat: %w", err)
	}

	existing, err := s.store.GetChatRequestBetween(ctx, fromUserID, toUserID)
	if err == nil && existing.Status == store.ChatRequestPending {
		return nil, ErrRequestAlreadyExists
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup request: %w", err)
	}

	req, err := s.store.CreateChatRequest(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// Accept answers a pending request, creates the chat, and notifies the
// requester's live connections.
func (s *Service) Accept(ctx context.Context, userID, requestID int64) (*store.Chat, error) {
	req, err := s.pendingRequest(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	chat, err := s.store.CreateChat(ctx, req.FromUserID, req.ToUserID)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	if err := s.store.UpdateChatRequestStatus(ctx, req.ID, store.ChatRequestAccepted); err != nil {
		return nil, fmt.Errorf("update request: %w", err)
	}

	accepter, err := s.store.GetUserByID(ctx, userID)
	username := ""
	if err == nil {
		username = accepter.Username
	}
	s.notifier.NotifyUser(req.FromUserID, RequestAccepted{
		Kind:     "chat-request-accepted",
		ChatID:   chat.ID,
		Username: username,
	})

	return chat, nil
}

// Decline answers a pending request without creating a chat.
func (s *Service) Decline(ctx context.Context, userID, requestID int64) error {
	req, err := s.pendingRequest(ctx, userID, requestID)
	if err != nil {
		return err
	}

	if err := s.store.UpdateChatRequestStatus(ctx, req.ID, store.ChatRequestDeclined); err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	return nil
}

// ListIncoming lists requests addressed to the user, optionally by status.
func (s *Service) ListIncoming(ctx context.Context, userID int64, status *store.ChatRequestStatus) ([]*store.ChatRequest, error) {
	return s.store.ListChatRequests(ctx, userID, status)
}

// ListChats lists the user's chats, most recently active first.
func (s *Service) ListChats(ctx context.Context, userID int64) ([]*store.Chat, error) {
	return s.store.ListChats(ctx, userID)
}

func (s *Service) pendingRequest(ctx context.Context, userID, requestID int64) (*store.ChatRequest, error) {
	req, err := s.store.GetChatRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("lookup request: %w", err)
	}

	if req.ToUserID != userID {
		return nil, ErrNotRecipient
	}
	if req.Status != store.ChatRequestPending {
		return nil, ErrRequestClosed
	}
	return req, nil
}
