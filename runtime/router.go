package runtime

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/observability"
	"context"
	"log/slog"
	"time"
)

// SignalRouter relays directed events to exactly one recipient connection.
// A missing recipient is not an error: the event is dropped, never queued nor retried.
type SignalRouter struct {
	log             *slog.Logger
	registry        contract.IRegistry
	metrics         *observability.Metrics
	deliveryTimeout time.Duration
}

func NewSignalRouter(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics, deliveryTimeout time.Duration) *SignalRouter {
	return &SignalRouter{
		log:             log.With("component", "router"),
		registry:        registry,
		metrics:         metrics,
		deliveryTimeout: deliveryTimeout,
	}
}

// RouteTyping delivers the signal verbatim to its recipient only.
func (r *SignalRouter) RouteTyping(ctx context.Context, signal domain.TypingSignal) bool {
	return r.deliverTo(ctx, signal.RecipientID, event.Typing{TypingSignal: signal})
}

// PushMessage delivers a canonical message to its receiver if online.
func (r *SignalRouter) PushMessage(ctx context.Context, message domain.Message) bool {
	return r.deliverTo(ctx, message.ReceiverID, event.NewMessage{Message: message})
}

func (r *SignalRouter) deliverTo(ctx context.Context, recipient domain.UserID, evt event.Event) bool {
	conn, ok := r.registry.Connection(recipient)
	if !ok {
		r.log.Debug("Recipient offline, event dropped", "kind", evt.Kind(), "user_id", recipient)
		r.metrics.Delivery(evt.Kind(), observability.OutcomeDropped)
		return false
	}
	return deliver(ctx, r.log, r.metrics, r.deliveryTimeout, conn, evt)
}
