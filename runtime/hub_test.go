package runtime

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/observability"
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// closableConnection lets the hub tear down a superseded connection.
type closableConnection struct {
	*fakeConnection
	closed atomic.Bool
}

func (c *closableConnection) Close(error) { c.closed.Store(true) }

func startHub(t *testing.T) (*Hub, *Registry) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics("test")
	registry := NewRegistry()
	hub := NewHub(log, registry,
		NewPresence(log, registry, metrics, time.Second),
		NewSignalRouter(log, registry, metrics, time.Second),
		metrics, 64)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		hub.Stop()
	})
	return hub, registry
}

func TestHub_Roster_Correctness(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub, _ := startHub(t)
	alice := newFakeConnection("alice")
	bob := newFakeConnection("bob")

	// When A connects, B connects and A disconnects
	req.NoError(hub.Connect(ctx, alice))
	req.NoError(hub.Connect(ctx, bob))
	req.NoError(hub.Disconnect(ctx, alice))

	// Then the final roster is {B}
	req.Eventually(func() bool {
		return len(bob.LastRoster()) == 1 && bob.LastRoster()[0] == "bob"
	}, time.Second, 5*time.Millisecond)
	req.Equal(domain.Roster{"bob"}, hub.Roster())

	// And alice received the rosters while she was online, including her own arrival
	req.Equal(domain.Roster{"alice"}, alice.Rosters()[0])
	req.Equal(domain.Roster{"alice", "bob"}, alice.LastRoster())
}

func TestHub_Single_Connection_Invariant(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub, registry := startHub(t)
	first := &closableConnection{fakeConnection: newFakeConnection("alice")}
	second := &closableConnection{fakeConnection: newFakeConnection("alice")}
	third := newFakeConnection("alice")

	req.NoError(hub.Connect(ctx, first))
	req.NoError(hub.Connect(ctx, second))
	req.NoError(hub.Connect(ctx, third))

	req.Eventually(func() bool {
		conn, ok := registry.Connection("alice")
		return ok && conn.ID() == third.ID()
	}, time.Second, 5*time.Millisecond)
	req.Equal(1, registry.Len())

	// Then superseded connections were asked to close
	req.Eventually(func() bool {
		return first.closed.Load() && second.closed.Load()
	}, time.Second, 5*time.Millisecond)
}

func TestHub_Stale_Disconnect_Keeps_Fresh_Connection(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub, registry := startHub(t)
	stale := newFakeConnection("alice")
	fresh := newFakeConnection("alice")
	observer := newFakeConnection("bob")

	req.NoError(hub.Connect(ctx, observer))
	req.NoError(hub.Connect(ctx, stale))
	req.NoError(hub.Connect(ctx, fresh))
	req.NoError(hub.Disconnect(ctx, stale))
	// carol's arrival is processed after the stale disconnect
	req.NoError(hub.Connect(ctx, newFakeConnection("carol")))

	// Then alice is still online with her fresh connection
	req.Eventually(func() bool {
		return len(observer.LastRoster()) == 3
	}, time.Second, 5*time.Millisecond)
	req.Equal(domain.Roster{"alice", "bob", "carol"}, observer.LastRoster())
	conn, ok := registry.Connection("alice")
	req.True(ok)
	req.Equal(fresh.ID(), conn.ID())
}

func TestHub_Connect_Then_Disconnect_Final_Broadcast(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub, _ := startHub(t)
	observer := newFakeConnection("bob")
	flaky := newFakeConnection("alice")

	req.NoError(hub.Connect(ctx, observer))
	req.NoError(hub.Connect(ctx, flaky))
	req.NoError(hub.Disconnect(ctx, flaky))

	// Either one or two broadcasts may be observed, the last one reflects the final state
	req.Eventually(func() bool {
		last := observer.LastRoster()
		return len(observer.Rosters()) >= 3 && len(last) == 1 && last[0] == "bob"
	}, time.Second, 5*time.Millisecond)
}

func TestHub_Typing_Is_Routed(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	hub, _ := startHub(t)
	alice := newFakeConnection("alice")
	bob := newFakeConnection("bob")
	carol := newFakeConnection("carol")
	for _, c := range []*fakeConnection{alice, bob, carol} {
		req.NoError(hub.Connect(ctx, c))
	}

	req.NoError(hub.Typing(ctx, domain.TypingSignal{SenderID: "alice", SenderName: "Alice", RecipientID: "bob", IsTyping: true}))

	req.Eventually(func() bool { return len(bob.Typings()) == 1 }, time.Second, 5*time.Millisecond)
	req.Empty(alice.Typings())
	req.Empty(carol.Typings())
}

func TestHub_Stopped_Rejects_Submissions(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	metrics := observability.NewMetrics("test")
	registry := NewRegistry()
	hub := NewHub(log, registry,
		NewPresence(log, registry, metrics, time.Second),
		NewSignalRouter(log, registry, metrics, time.Second),
		metrics, 0)

	hub.Stop()

	req.ErrorIs(hub.Connect(context.Background(), newFakeConnection("alice")), errors.ErrHubStopped)
	req.ErrorIs(hub.Typing(context.Background(), domain.TypingSignal{}), errors.ErrHubStopped)
}
