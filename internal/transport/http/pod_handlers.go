package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/podhouse/podhouse-server/internal/store"
)

// PodHandlers provides HTTP handlers for pod and room administration.
type PodHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewPodHandlers creates a new pod handlers instance.
func NewPodHandlers(st store.Store, logger *zerolog.Logger) *PodHandlers {
	return &PodHandlers{store: st, log: logger}
}

// CreatePodRequest represents the pod creation request body.
type CreatePodRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// CreateRoomRequest represents the room creation request body.
type CreateRoomRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=64"`
	IsPrivate bool   `json:"isPrivate"`
}

// AddRoomMemberRequest represents the room member addition request body.
type AddRoomMemberRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

// PodResponse represents a pod in API responses.
type PodResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	OwnerID   int64  `json:"ownerId"`
	CreatedAt int64  `json:"createdAt"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID        int64  `json:"id"`
	PodID     int64  `json:"podId"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"isPrivate"`
	CreatedAt int64  `json:"createdAt"`
}

func podResponse(p *store.Pod) PodResponse {
	return PodResponse{ID: p.ID, Name: p.Name, OwnerID: p.OwnerID, CreatedAt: p.CreatedAt.Unix()}
}

func roomResponse(r *store.Room) RoomResponse {
	return RoomResponse{ID: r.ID, PodID: r.PodID, Name: r.Name, IsPrivate: r.IsPrivate, CreatedAt: r.CreatedAt.Unix()}
}

// CreatePod creates a pod owned by the caller.
// POST /api/pods
func (h *PodHandlers) CreatePod(c *gin.Context) {
	var req CreatePodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	pod, err := h.store.CreatePod(c.Request.Context(), req.Name, currentUserID(c))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create pod")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, podResponse(pod))
}

// ListPods lists pods the caller owns or is a member of.
// GET /api/pods
func (h *PodHandlers) ListPods(c *gin.Context) {
	pods, err := h.store.ListPods(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list pods")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]PodResponse, 0, len(pods))
	for _, p := range pods {
		out = append(out, podResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

// JoinPod adds the caller to a pod's member list.
// POST /api/pods/:id/join
func (h *PodHandlers) JoinPod(c *gin.Context) {
	podID, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetPodByID(ctx, podID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "pod not found"})
			return
		}
		h.log.Error().Err(err).Int64("pod_id", podID).Msg("failed to look up pod")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.AddPodMember(ctx, podID, currentUserID(c)); err != nil {
		h.log.Error().Err(err).Int64("pod_id", podID).Msg("failed to join pod")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// LeavePod removes the caller from a pod's member list. The owner cannot
// leave their own pod.
// POST /api/pods/:id/leave
func (h *PodHandlers) LeavePod(c *gin.Context) {
	podID, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	pod, err := h.store.GetPodByID(ctx, podID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "pod not found"})
			return
		}
		h.log.Error().Err(err).Int64("pod_id", podID).Msg("failed to look up pod")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if pod.OwnerID == currentUserID(c) {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "owner cannot leave their own pod"})
		return
	}

	if err := h.store.RemovePodMember(ctx, podID, currentUserID(c)); err != nil {
		h.log.Error().Err(err).Int64("pod_id", podID).Msg("failed to leave pod")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateRoom creates a room inside a pod. Only the pod owner may do this.
// POST /api/pods/:id/rooms
func (h *PodHandlers) CreateRoom(c *gin.Context) {
	podID, ok := pathID(c)
	if !ok {
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	pod, err := h.store.GetPodByID(ctx, podID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "pod not found"})
			return
		}
		h.log.Error().Err(err).Int64("pod_id", podID).Msg("failed to look up pod")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if pod.OwnerID != currentUserID(c) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the pod owner can create rooms"})
		return
	}

	room, err := h.store.CreateRoom(ctx, podID, req.Name, req.IsPrivate)
	if err != nil {
		h.log.Error().Err(err).Int64("pod_id", podID).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	// The creator is always part of a private room's audience.
	if room.IsPrivate {
		if err := h.store.AddRoomMember(ctx, room.ID, currentUserID(c)); err != nil {
			h.log.Error().Err(err).Int64("room_id", room.ID).Msg("failed to add creator to private room")
		}
	}

	c.JSON(http.StatusCreated, roomResponse(room))
}

// ListRooms lists a pod's rooms for pod members and the owner.
// GET /api/pods/:id/rooms
func (h *PodHandlers) ListRooms(c *gin.Context) {
	podID, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	pod, err := h.store.GetPodByID(ctx, podID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "pod not found"})
			return
		}
		h.log.Error().Err(err).Int64("pod_id", podID).Msg("failed to look up pod")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	userID := currentUserID(c)
	if pod.OwnerID != userID {
		member, err := h.store.IsPodMember(ctx, podID, userID)
		if err != nil {
			h.log.Error().Err(err).Int64("pod_id", podID).Msg("failed to check membership")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		if !member {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "you are not a member of this pod"})
			return
		}
	}

	rooms, err := h.store.ListRooms(ctx, podID)
	if err != nil {
		h.log.Error().Err(err).Int64("pod_id", podID).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	out := make([]RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// AddRoomMember adds a user to a private room's member subset. Only the pod
// owner may do this.
// POST /api/rooms/:id/members
func (h *PodHandlers) AddRoomMember(c *gin.Context) {
	roomID, ok := pathID(c)
	if !ok {
		return
	}

	var req AddRoomMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	room, err := h.store.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to look up room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	pod, err := h.store.GetPodByID(ctx, room.PodID)
	if err != nil {
		h.log.Error().Err(err).Int64("pod_id", room.PodID).Msg("failed to look up pod")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if pod.OwnerID != currentUserID(c) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the pod owner can manage room members"})
		return
	}

	if err := h.store.AddRoomMember(ctx, roomID, req.UserID); err != nil {
		h.log.Error().Err(err).Int64("room_id", roomID).Msg("failed to add room member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// pathID parses the :id path parameter. On failure it writes the 400 itself.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}
