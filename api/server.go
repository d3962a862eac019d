// Package api exposes the HTTP surface: the websocket upgrade, message history and send, the online roster and metrics.
package api

import (
	"chat-presence/contract"
	"chat-presence/observability"
	"chat-presence/services"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Server struct {
	log            *slog.Logger
	chat           services.IChatService
	authenticator  contract.Authenticator
	socket         http.Handler
	metrics        *observability.Metrics
	allowedOrigins []string
}

func NewServer(log *slog.Logger, chat services.IChatService, authenticator contract.Authenticator,
	socket http.Handler, metrics *observability.Metrics, allowedOrigins []string) *Server {
	return &Server{
		log:            log.With("component", "api"),
		chat:           chat,
		authenticator:  authenticator,
		socket:         socket,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
	}
}

// Router builds the gin engine. The websocket handler authenticates on its own
// since browsers can't set headers on the upgrade request.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(s.recoveryMiddleware(), s.loggerMiddleware(), s.corsMiddleware())

	r.GET("/ws", gin.WrapH(s.socket))
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api", s.authMiddleware())
	api.GET("/messages/:id", s.getMessages)
	api.POST("/messages/send/:id", s.sendMessage)
	api.GET("/users/online", s.online)
	return r
}
