package runtime

import (
	"chat-presence/domain"
	"chat-presence/domain/event"
	"chat-presence/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestSignalRouter_RouteTyping_Only_To_Recipient(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	router := NewSignalRouter(log, registry, observability.NewMetrics("test"), time.Second)
	conns := map[domain.UserID]*fakeConnection{}
	for _, id := range []domain.UserID{"alice", "bob", "carol", "dave"} {
		conns[id] = newFakeConnection(id)
		registry.Register(conns[id])
	}
	signal := domain.TypingSignal{SenderID: "alice", SenderName: "Alice", RecipientID: "bob", IsTyping: true}

	// When alice types to bob
	delivered := router.RouteTyping(context.Background(), signal)

	// Then only bob receives the signal, verbatim
	req.True(delivered)
	req.Equal([]domain.TypingSignal{signal}, conns["bob"].Typings())
	req.Empty(conns["alice"].Events())
	req.Empty(conns["carol"].Events())
	req.Empty(conns["dave"].Events())
}

func TestSignalRouter_RouteTyping_Offline_Recipient_Is_Dropped(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	router := NewSignalRouter(log, registry, observability.NewMetrics("test"), time.Second)
	alice := newFakeConnection("alice")
	carol := newFakeConnection("carol")
	registry.Register(alice)
	registry.Register(carol)

	// When alice types to bob who is offline
	delivered := router.RouteTyping(context.Background(),
		domain.TypingSignal{SenderID: "alice", RecipientID: "bob", IsTyping: true})

	// Then nobody receives anything
	req.False(delivered)
	req.Empty(alice.Events())
	req.Empty(carol.Events())
}

func TestSignalRouter_RouteTyping_Keeps_Sender_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	router := NewSignalRouter(log, registry, observability.NewMetrics("test"), time.Second)
	bob := newFakeConnection("bob")
	registry.Register(bob)

	names := []string{"a", "ab", "abc"}
	for _, n := range names {
		router.RouteTyping(context.Background(),
			domain.TypingSignal{SenderID: "alice", SenderName: n, RecipientID: "bob", IsTyping: true})
	}

	got := bob.Typings()
	req.Len(got, len(names))
	for i, n := range names {
		req.Equal(n, got[i].SenderName)
	}
}

func TestSignalRouter_PushMessage(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	router := NewSignalRouter(log, registry, observability.NewMetrics("test"), time.Second)
	alice := newFakeConnection("alice")
	bob := newFakeConnection("bob")
	registry.Register(alice)
	registry.Register(bob)
	msg := domain.Message{ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", Text: "hi", CreatedAt: time.Now().UTC()}

	req.True(router.PushMessage(context.Background(), msg))

	req.Equal([]event.Event{event.NewMessage{Message: msg}}, bob.Events())
	req.Empty(alice.Events())
}
