package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/podhouse/podhouse-server/internal/auth"
	"github.com/podhouse/podhouse-server/internal/config"
	"github.com/podhouse/podhouse-server/internal/core"
	"github.com/podhouse/podhouse-server/internal/service/chats"
	"github.com/podhouse/podhouse-server/internal/service/history"
	"github.com/podhouse/podhouse-server/internal/store"
)

// NewServer builds the HTTP server: REST endpoints, metrics, and the
// WebSocket gateway entry point.
func NewServer(
	hub *core.Hub,
	authService *auth.Service,
	st store.Store,
	chatsService *chats.Service,
	historyService *history.Service,
	cfg config.Config,
	logger *zerolog.Logger,
) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(authService, logger)
	podHandlers := NewPodHandlers(st, logger)
	chatHandlers := NewChatHandlers(chatsService, logger)
	messageHandlers := NewMessageHandlers(historyService, cfg.HistoryPageSize, logger)
	wsHandler := NewWSHandler(hub, authService, cfg.MaxMessageBytes, logger)

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authed := api.Group("")
	authed.Use(AuthMiddleware(authService, logger))
	{
		authed.POST("/pods", podHandlers.CreatePod)
		authed.GET("/pods", podHandlers.ListPods)
		authed.POST("/pods/:id/join", podHandlers.JoinPod)
		authed.POST("/pods/:id/leave", podHandlers.LeavePod)
		authed.POST("/pods/:id/rooms", podHandlers.CreateRoom)
		authed.GET("/pods/:id/rooms", podHandlers.ListRooms)
		authed.POST("/rooms/:id/members", podHandlers.AddRoomMember)
		authed.GET("/rooms/:id/messages", messageHandlers.RoomHistory)

		authed.POST("/requests", chatHandlers.SendRequest)
		authed.GET("/requests", chatHandlers.ListRequests)
		authed.POST("/requests/:id/accept", chatHandlers.AcceptRequest)
		authed.POST("/requests/:id/decline", chatHandlers.DeclineRequest)
		authed.GET("/chats", chatHandlers.ListChats)
		authed.GET("/chats/:id/messages", messageHandlers.ChatHistory)
	}

	// The WebSocket endpoint bypasses gin: the upgraded connection needs
	// the raw ResponseWriter, and gin's wrapper starves the write side.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
