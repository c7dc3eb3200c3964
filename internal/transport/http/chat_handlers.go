package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/podhouse/podhouse-server/internal/service/chats"
	"github.com/podhouse/podhouse-server/internal/store"
)

// ChatHandlers provides HTTP handlers for message requests and chats.
type ChatHandlers struct {
	chats *chats.Service
	log   *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(chatsService *chats.Service, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{chats: chatsService, log: logger}
}

// SendRequestBody represents the message request creation body.
type SendRequestBody struct {
	ToUserID int64 `json:"toUserId" binding:"required"`
}

// RequestResponse represents a message request in API responses.
type RequestResponse struct {
	ID         int64  `json:"id"`
	FromUserID int64  `json:"fromUserId"`
	ToUserID   int64  `json:"toUserId"`
	Status     string `json:"status"`
	CreatedAt  int64  `json:"createdAt"`
}

// ChatResponse represents a chat in API responses.
type ChatResponse struct {
	ID            int64 `json:"id"`
	UserAID       int64 `json:"userAId"`
	UserBID       int64 `json:"userBId"`
	LastMessageAt int64 `json:"lastMessageAt"`
	CreatedAt     int64 `json:"createdAt"`
}

func requestResponse(r *store.ChatRequest) RequestResponse {
	return RequestResponse{
		ID:         r.ID,
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		Status:     string(r.Status),
		CreatedAt:  r.CreatedAt.Unix(),
	}
}

func chatResponse(ch *store.Chat) ChatResponse {
	return ChatResponse{
		ID:            ch.ID,
		UserAID:       ch.UserAID,
		UserBID:       ch.UserBID,
		LastMessageAt: ch.LastMessageAt.Unix(),
		CreatedAt:     ch.CreatedAt.Unix(),
	}
}

// SendRequest creates a pending message request to another user.
// POST /api/requests
func (h *ChatHandlers) SendRequest(c *gin.Context) {
	var body SendRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	req, err := h.chats.SendRequest(c.Request.Context(), currentUserID(c), body.ToUserID)
	if err != nil {
		switch {
		case errors.Is(err, chats.ErrCannotRequestSelf):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		case errors.Is(err, chats.ErrUserNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		case errors.Is(err, chats.ErrAlreadyChatting), errors.Is(err, chats.ErrRequestAlreadyExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Msg("failed to create message request")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, requestResponse(req))
}

// ListRequests lists message requests addressed to the caller. The optional
// status query filters by lifecycle state.
// GET /api/requests?status=pending
func (h *ChatHandlers) ListRequests(c *gin.Context) {
	var status *store.ChatRequestStatus
	if raw := c.Query("status"); raw != "" {
		s := store.ChatRequestStatus(raw)
		switch s {
		case store.ChatRequestPending, store.ChatRequestAccepted, store.ChatRequestDeclined:
			status = &s
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
			return
		}
	}

	reqs, err := h.chats.ListIncoming(c.Request.Context(), currentUserID(c), status)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list message requests")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]RequestResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, requestResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// AcceptRequest accepts a pending message request and opens the chat.
// POST /api/requests/:id/accept
func (h *ChatHandlers) AcceptRequest(c *gin.Context) {
	requestID, ok := pathID(c)
	if !ok {
		return
	}

	chat, err := h.chats.Accept(c.Request.Context(), currentUserID(c), requestID)
	if err != nil {
		h.writeRequestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, chatResponse(chat))
}

// DeclineRequest declines a pending message request.
// POST /api/requests/:id/decline
func (h *ChatHandlers) DeclineRequest(c *gin.Context) {
	requestID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.chats.Decline(c.Request.Context(), currentUserID(c), requestID); err != nil {
		h.writeRequestError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListChats lists the caller's chats ordered by last activity.
// GET /api/chats
func (h *ChatHandlers) ListChats(c *gin.Context) {
	list, err := h.chats.ListChats(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list chats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]ChatResponse, 0, len(list))
	for _, ch := range list {
		out = append(out, chatResponse(ch))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ChatHandlers) writeRequestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chats.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, chats.ErrNotRecipient):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, chats.ErrRequestClosed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg("failed to answer message request")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
