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

// Presence publishes the full roster to every registered connection.
//
// It is intentionally global, unlike SignalRouter. Delivery is best effort:
// a connection whose outbox is full misses this snapshot but will get the next one.
type Presence struct {
	log             *slog.Logger
	registry        contract.IRegistry
	metrics         *observability.Metrics
	deliveryTimeout time.Duration
}

func NewPresence(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics, deliveryTimeout time.Duration) *Presence {
	return &Presence{
		log:             log.With("component", "presence"),
		registry:        registry,
		metrics:         metrics,
		deliveryTimeout: deliveryTimeout,
	}
}

// Broadcast pushes the roster as it is at the instant of the call and returns it.
func (p *Presence) Broadcast(ctx context.Context) domain.Roster {
	roster, conns := p.registry.Snapshot()
	evt := event.RosterUpdated{Online: roster}

	for _, conn := range conns {
		deliver(ctx, p.log, p.metrics, p.deliveryTimeout, conn, evt)
	}
	p.metrics.SetOnline(len(roster))
	p.metrics.RosterBroadcast()
	return roster
}

// deliver hands one event to one connection with a bounded wait.
func deliver(ctx context.Context, log *slog.Logger, metrics *observability.Metrics,
	timeout time.Duration, conn contract.Connection, evt event.Event) bool {
	deliveryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := conn.Deliver(deliveryCtx, evt); err != nil {
		log.Warn("Event not delivered",
			"kind", evt.Kind(),
			"user_id", conn.UserID(),
			"conn_id", conn.ID(),
			"error", err)
		metrics.Delivery(evt.Kind(), observability.OutcomeFailed)
		return false
	}
	metrics.Delivery(evt.Kind(), observability.OutcomeDelivered)
	return true
}
