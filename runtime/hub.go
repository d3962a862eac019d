// Package runtime owns the connection registry and sequences every mutation of it.
// It orchestrates presence and routing without containing transport details.
package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/errors"
	"chat-presence/observability"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type command interface {
	isCommand()
}

type connectCommand struct{ conn contract.Connection }
type disconnectCommand struct{ conn contract.Connection }
type typingCommand struct{ signal domain.TypingSignal }
type pushCommand struct{ message domain.Message }

func (connectCommand) isCommand()    {}
func (disconnectCommand) isCommand() {}
func (typingCommand) isCommand()     {}
func (pushCommand) isCommand()       {}

// closer is implemented by transports able to tear a superseded connection down.
type closer interface {
	Close(reason error)
}

// Hub is the single writer of the Registry.
// Connects, disconnects and directed deliveries are applied one at a time by Run,
// so a roster broadcast always reflects the registry right after the mutation that caused it.
type Hub struct {
	log      *slog.Logger
	registry *Registry
	presence *Presence
	router   *SignalRouter
	metrics  *observability.Metrics
	commands chan command
	done     chan struct{}
	stopOnce sync.Once
}

func NewHub(log *slog.Logger, registry *Registry, presence *Presence, router *SignalRouter,
	metrics *observability.Metrics, bufferSize int) *Hub {
	return &Hub{
		log:      log.With("component", "hub"),
		registry: registry,
		presence: presence,
		router:   router,
		metrics:  metrics,
		commands: make(chan command, bufferSize),
		done:     make(chan struct{}),
	}
}

var _ contract.IHub = (*Hub)(nil)

// Run processes commands until ctx is canceled. It may be restarted by a supervisor
// after a panic: the registry lives outside the loop and survives restarts.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("Context done, stopping hub")
			return nil
		case cmd := <-h.commands:
			h.handle(ctx, cmd)
		}
	}
}

func (h *Hub) handle(ctx context.Context, cmd command) {
	switch c := cmd.(type) {
	case connectCommand:
		h.onConnect(ctx, c.conn)
	case disconnectCommand:
		h.onDisconnect(ctx, c.conn)
	case typingCommand:
		h.router.RouteTyping(ctx, c.signal)
	case pushCommand:
		h.router.PushMessage(ctx, c.message)
	default:
		panic(fmt.Sprintf("unhandled hub command %T", cmd))
	}
}

func (h *Hub) onConnect(ctx context.Context, conn contract.Connection) {
	previous, replaced := h.registry.Register(conn)
	if replaced {
		h.log.Info("Connection replaced", "user_id", conn.UserID(), "conn_id", conn.ID(), "previous_conn_id", previous.ID())
		h.metrics.ConnectionEvent(observability.ConnectionReplaced)
		if c, ok := previous.(closer); ok {
			c.Close(fmt.Errorf("%w: superseded by %s", errors.ErrConnectionClosed, conn.ID()))
		}
	} else {
		h.log.Info("User connected", "user_id", conn.UserID(), "conn_id", conn.ID())
		h.metrics.ConnectionEvent(observability.ConnectionOpened)
	}
	h.presence.Broadcast(ctx)
}

func (h *Hub) onDisconnect(ctx context.Context, conn contract.Connection) {
	if !h.registry.Unregister(conn) {
		// A newer connection owns the entry, leave it alone.
		h.log.Debug("Stale disconnect ignored", "user_id", conn.UserID(), "conn_id", conn.ID())
		h.metrics.ConnectionEvent(observability.ConnectionStale)
		return
	}
	h.log.Info("User disconnected", "user_id", conn.UserID(), "conn_id", conn.ID())
	h.metrics.ConnectionEvent(observability.ConnectionClosed)
	h.presence.Broadcast(ctx)
}

// Connect registers conn (overwriting any previous connection of the same user)
// and republishes the roster to everyone, conn included.
func (h *Hub) Connect(ctx context.Context, conn contract.Connection) error {
	return h.submit(ctx, connectCommand{conn: conn})
}

// Disconnect removes conn if it is still the current connection of its owner.
// Callers should pass a context that outlives the transport, see context.WithoutCancel.
func (h *Hub) Disconnect(ctx context.Context, conn contract.Connection) error {
	return h.submit(ctx, disconnectCommand{conn: conn})
}

// Typing is best effort: the signal is dropped when the hub is saturated.
func (h *Hub) Typing(_ context.Context, signal domain.TypingSignal) error {
	select {
	case h.commands <- typingCommand{signal: signal}:
		return nil
	case <-h.done:
		return errors.ErrHubStopped
	default:
		h.log.Warn("Hub saturated, typing signal dropped", "user_id", signal.SenderID)
		h.metrics.Delivery(event.KindTyping, observability.OutcomeDropped)
		return nil
	}
}

func (h *Hub) PushMessage(ctx context.Context, message domain.Message) error {
	return h.submit(ctx, pushCommand{message: message})
}

func (h *Hub) Roster() domain.Roster {
	return h.registry.Roster()
}

func (h *Hub) QueueLen() int { return len(h.commands) }

func (h *Hub) QueueCap() int { return cap(h.commands) }

// Stop makes every pending and future submission fail fast with ErrHubStopped.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) submit(ctx context.Context, cmd command) error {
	select {
	case <-h.done:
		return errors.ErrHubStopped
	default:
	}
	select {
	case h.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return errors.ErrHubStopped
	}
}
