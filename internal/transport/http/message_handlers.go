package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/podhouse/podhouse-server/internal/core"
	"github.com/podhouse/podhouse-server/internal/proto"
	"github.com/podhouse/podhouse-server/internal/service/history"
	"github.com/podhouse/podhouse-server/internal/store"
)

// MessageHandlers serves paginated message history over HTTP.
type MessageHandlers struct {
	history      *history.Service
	defaultLimit int
	log          *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(historyService *history.Service, defaultLimit int, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{history: historyService, defaultLimit: defaultLimit, log: logger}
}

// HistoryResponse is a page of messages, oldest first.
type HistoryResponse struct {
	Messages []proto.MessagePayload `json:"messages"`
}

// RoomHistory serves a page of room messages.
// GET /api/rooms/:id/messages?before=<messageID>&limit=<n>
func (h *MessageHandlers) RoomHistory(c *gin.Context) {
	roomID, ok := pathID(c)
	if !ok {
		return
	}
	before, limit, ok := h.pageParams(c)
	if !ok {
		return
	}

	page, err := h.history.RoomPage(c.Request.Context(), currentUserID(c), roomID, before, limit)
	if err != nil {
		h.writeHistoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, historyResponse(page))
}

// ChatHistory serves a page of direct messages.
// GET /api/chats/:id/messages?before=<messageID>&limit=<n>
func (h *MessageHandlers) ChatHistory(c *gin.Context) {
	chatID, ok := pathID(c)
	if !ok {
		return
	}
	before, limit, ok := h.pageParams(c)
	if !ok {
		return
	}

	page, err := h.history.ChatPage(c.Request.Context(), currentUserID(c), chatID, before, limit)
	if err != nil {
		h.writeHistoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, historyResponse(page))
}

func (h *MessageHandlers) pageParams(c *gin.Context) (before *int64, limit int, ok bool) {
	limit = h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return nil, 0, false
		}
		limit = n
	}
	if raw := c.Query("before"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid cursor"})
			return nil, 0, false
		}
		before = &id
	}
	return before, limit, true
}

func (h *MessageHandlers) writeHistoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrRoomNotFound), errors.Is(err, core.ErrChatNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrNotPodMember), errors.Is(err, core.ErrNotParticipant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg("failed to load history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func historyResponse(page []*store.MessageWithSender) HistoryResponse {
	out := HistoryResponse{Messages: make([]proto.MessagePayload, 0, len(page))}
	for _, msg := range page {
		out.Messages = append(out.Messages, messagePayload(msg))
	}
	return out
}
