// Package ws is the WebSocket transport: one Connection per handshake,
// bound to the authenticated user for its whole lifetime.
package ws

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/errors"
	"context"
	goerrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const readLimit = 32 << 10

type ConnectionConfig struct {
	BufferSize   int
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// EventHandler receives every well formed inbound event, in order.
type EventHandler func(ctx context.Context, e event.Event)

// Connection owns a websocket and an ordered outbox drained by a single writer.
type Connection struct {
	id     uuid.UUID
	user   domain.AuthUser
	conn   *websocket.Conn
	config ConnectionConfig
	outbox chan event.Event
	log    *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	reason    error
}

func NewConnection(log *slog.Logger, conn *websocket.Conn, user domain.AuthUser, config ConnectionConfig) *Connection {
	id := uuid.New()
	conn.SetReadLimit(readLimit)
	return &Connection{
		id:     id,
		user:   user,
		conn:   conn,
		config: config,
		outbox: make(chan event.Event, config.BufferSize),
		log:    log.With("conn_id", id, "user_id", user.ID),
		done:   make(chan struct{}),
	}
}

var _ contract.Connection = (*Connection)(nil)

func (c *Connection) ID() uuid.UUID { return c.id }

func (c *Connection) UserID() domain.UserID { return c.user.ID }

func (c *Connection) User() domain.AuthUser { return c.user }

// Deliver never blocks: a slow client loses events instead of stalling the hub.
func (c *Connection) Deliver(_ context.Context, e event.Event) error {
	select {
	case <-c.done:
		return errors.ErrConnectionClosed
	default:
	}
	select {
	case c.outbox <- e:
		return nil
	default:
		return errors.ErrOutboxFull
	}
}

// Close asks the writer to shut the socket down. It returns immediately and is idempotent.
func (c *Connection) Close(reason error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.done)
	})
}

// Done is closed once Close has been called.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Serve pumps the socket until the peer leaves, ctx is canceled or Close is called.
// The returned error is the reason the connection ended.
func (c *Connection) Serve(ctx context.Context, onEvent EventHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- c.readPump(ctx, onEvent) }()
	go func() { errs <- c.writePump(ctx) }()

	err := <-errs
	c.Close(err)
	cancel()
	<-errs

	c.mu.Lock()
	reason := c.reason
	c.mu.Unlock()
	c.log.Info("Connection closed", "reason", reason, "status", websocket.CloseStatus(reason))
	return reason
}

func (c *Connection) readPump(ctx context.Context, onEvent EventHandler) error {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			c.log.Warn("Binary frame ignored")
			continue
		}
		e, err := event.Decode(data)
		if err != nil {
			c.log.Warn("Inbound event rejected", "error", err)
			continue
		}
		onEvent(ctx, e)
	}
}

func (c *Connection) writePump(ctx context.Context) error {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case e := <-c.outbox:
			if err := c.write(ctx, e); err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		case <-c.done:
			c.mu.Lock()
			reason := c.reason
			c.mu.Unlock()
			status := websocket.StatusNormalClosure
			if goerrors.Is(reason, errors.ErrConnectionClosed) {
				status = websocket.StatusPolicyViolation
			}
			_ = c.conn.Close(status, closeText(reason))
			return reason
		case <-ctx.Done():
			_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
			return ctx.Err()
		}
	}
}

func (c *Connection) write(ctx context.Context, e event.Event) error {
	data, err := event.Encode(e)
	if err != nil {
		c.log.Error("Unable to encode event", "kind", e.Kind(), "error", err)
		return nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageText, data)
}

// closeText fits the reason in a close frame, which carries at most 123 bytes.
func closeText(reason error) string {
	if reason == nil {
		return ""
	}
	text := reason.Error()
	if len(text) > 123 {
		text = text[:123]
	}
	return text
}
