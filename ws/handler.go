package ws

import (
	"chat-presence/contract"
	"chat-presence/domain/event"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-playground/validator/v10"
)

const disconnectTimeout = 5 * time.Second

// Handler upgrades authenticated requests and binds each socket to the hub.
// Requests without an identity are refused before the upgrade and never reach presence.
type Handler struct {
	log            *slog.Logger
	authenticator  contract.Authenticator
	hub            contract.IHub
	config         ConnectionConfig
	originPatterns []string
	validate       *validator.Validate
}

func NewHandler(log *slog.Logger, authenticator contract.Authenticator, hub contract.IHub,
	config ConnectionConfig, originPatterns []string) *Handler {
	return &Handler{
		log:            log.With("component", "ws"),
		authenticator:  authenticator,
		hub:            hub,
		config:         config,
		originPatterns: originPatterns,
		validate:       validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticator.Authenticate(r)
	if err != nil {
		h.log.Debug("Handshake refused", "remote_addr", r.RemoteAddr, "error", err)
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.log.Error("Failed to accept websocket connection", "user_id", user.ID, "error", err)
		return
	}

	ctx := r.Context()
	conn := NewConnection(h.log, wsConn, user, h.config)
	if err := h.hub.Connect(ctx, conn); err != nil {
		h.log.Error("Unable to register connection", "user_id", user.ID, "error", err)
		_ = wsConn.Close(websocket.StatusTryAgainLater, "unavailable")
		return
	}

	_ = conn.Serve(ctx, func(ctx context.Context, e event.Event) {
		h.onEvent(ctx, conn, e)
	})

	// The request context is gone by now, the hub still has to hear about it.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()
	if err := h.hub.Disconnect(dctx, conn); err != nil {
		h.log.Warn("Unable to unregister connection", "user_id", user.ID, "conn_id", conn.ID(), "error", err)
	}
}

// onEvent accepts typing signals only. The sender fields are stamped from
// the connection owner so a client can't speak for somebody else.
func (h *Handler) onEvent(ctx context.Context, conn *Connection, e event.Event) {
	switch evt := e.(type) {
	case event.Typing:
		signal := evt.TypingSignal
		signal.SenderID = conn.UserID()
		if name := conn.User().DisplayName; name != "" {
			signal.SenderName = name
		}
		if err := h.validate.Struct(signal); err != nil {
			h.log.Warn("Invalid typing signal", "user_id", conn.UserID(), "error", err)
			return
		}
		if err := h.hub.Typing(ctx, signal); err != nil {
			h.log.Warn("Typing signal not routed", "user_id", conn.UserID(), "error", err)
		}
	case event.RosterUpdated, event.NewMessage:
		h.log.Warn("Server-only event sent by client", "user_id", conn.UserID(), "kind", evt.Kind())
	default:
		h.log.Warn("Unhandled inbound event", "user_id", conn.UserID(), "kind", e.Kind())
	}
}
