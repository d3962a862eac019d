package client

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/mocks"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakePush keeps real subscriber lists so tests can count live subscriptions.
type fakePush struct {
	messages subscribers[domain.Message]
	typing   subscribers[domain.TypingSignal]
	rosters  subscribers[domain.Roster]
	sent     []domain.TypingSignal
}

func (p *fakePush) SendTyping(_ context.Context, signal domain.TypingSignal) error {
	p.sent = append(p.sent, signal)
	return nil
}

func (p *fakePush) OnNewMessage(h func(domain.Message)) contract.Unsubscribe { return p.messages.add(h) }

func (p *fakePush) OnTyping(h func(domain.TypingSignal)) contract.Unsubscribe { return p.typing.add(h) }

func (p *fakePush) OnRoster(h func(domain.Roster)) contract.Unsubscribe { return p.rosters.add(h) }

type recordingNotifier struct {
	notified []domain.Message
}

func (n *recordingNotifier) Notify(m domain.Message) { n.notified = append(n.notified, m) }

type fixture struct {
	coordinator *Coordinator
	store       *mocks.MockMessageStore
	push        *fakePush
	notifier    *recordingNotifier
	clock       *clock.Mock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockMessageStore(ctrl)
	push := &fakePush{}
	notifier := &recordingNotifier{}
	clk := clock.NewMock()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	coordinator := NewCoordinator(log, alice, store, push,
		NewTypingDebouncer(clk, alice.ID, DefaultTypingWindow, nil),
		NewTypingEmitter(clk, push, alice, 0),
		notifier)
	t.Cleanup(coordinator.Shutdown)
	return fixture{coordinator: coordinator, store: store, push: push, notifier: notifier, clock: clk}
}

func messageFrom(sender, receiver domain.UserID, text string) domain.Message {
	return domain.Message{ID: uuid.New(), SenderID: sender, ReceiverID: receiver, Text: text, CreatedAt: time.Now().UTC()}
}

func (f fixture) open(t *testing.T, counterpart domain.UserID, history ...domain.Message) {
	t.Helper()
	f.store.EXPECT().ListMessages(gomock.Any(), counterpart).Return(history, nil)
	require.NoError(t, f.coordinator.Open(context.Background(), counterpart))
}

func TestCoordinator_Send_ValidationBoundary(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		image   bool
		wantErr error
	}{
		{name: "empty text no image", text: "", wantErr: errors.ErrEmptyDraft},
		{name: "whitespace no image", text: " \n\t", wantErr: errors.ErrValidation},
		{name: "whitespace with image", text: "  ", image: true},
		{name: "plain text", text: " hi "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			f := newFixture(t)
			f.open(t, "bob")
			f.coordinator.SetText(context.Background(), tt.text)
			if tt.image {
				req.NoError(f.coordinator.AttachImage("cat.png", "image/png", pngHeader))
			}
			draft := f.coordinator.Draft().Normalize()

			if tt.wantErr == nil {
				f.store.EXPECT().CreateMessage(gomock.Any(), domain.UserID("bob"), draft).
					Return(domain.Message{ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", Text: draft.Text, Image: draft.Image}, nil)
			}

			_, err := f.coordinator.Send(context.Background())

			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				req.Equal(tt.text, f.coordinator.Draft().Text)
				req.Empty(f.coordinator.Messages())
				return
			}
			req.NoError(err)
			req.Len(f.coordinator.Messages(), 1)
			req.Equal(domain.Draft{}, f.coordinator.Draft())
		})
	}
}

func TestCoordinator_Send_FailureKeepsComposeState(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	history := []domain.Message{messageFrom("bob", "alice", "hey"), messageFrom("alice", "bob", "yo")}
	f.open(t, "bob", history...)
	f.coordinator.SetText(context.Background(), "hi")
	f.store.EXPECT().CreateMessage(gomock.Any(), domain.UserID("bob"), domain.Draft{Text: "hi"}).
		Return(domain.Message{}, fmt.Errorf("%w: 502", errors.ErrStorage))

	_, err := f.coordinator.Send(context.Background())

	req.ErrorIs(err, errors.ErrStorage)
	req.Equal("hi", f.coordinator.Draft().Text)
	req.Len(f.coordinator.Messages(), len(history))
}

func TestCoordinator_Send_WithoutConversation(t *testing.T) {
	f := newFixture(t)
	f.coordinator.SetText(context.Background(), "hi")

	_, err := f.coordinator.Send(context.Background())

	require.ErrorIs(t, err, errors.ErrNoConversation)
}

func TestCoordinator_Receive_AppendOnlyFromCounterpart(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.open(t, "bob")
	fromBob := messageFrom("bob", "alice", "1")
	fromCarol := messageFrom("carol", "alice", "2")

	// When pushes arrive from bob and from carol
	f.push.messages.publish(fromBob)
	f.push.messages.publish(fromCarol)

	// Then only bob's is appended and carol's is handed to the notifier
	req.Equal([]domain.Message{fromBob}, f.coordinator.Messages())
	req.Equal([]domain.Message{fromCarol}, f.notifier.notified)
}

func TestCoordinator_Open_KeepsSingleSubscription(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	f.open(t, "bob")
	f.open(t, "carol")
	f.open(t, "carol")

	req.Equal(1, f.push.messages.len())
	req.Equal(1, f.push.typing.len())

	// A message from bob is no longer part of the open conversation
	f.push.messages.publish(messageFrom("bob", "alice", "late"))
	req.Empty(f.coordinator.Messages())
	req.Len(f.notifier.notified, 1)

	f.coordinator.Close()
	req.Zero(f.push.messages.len())
	req.Zero(f.push.typing.len())
}

func TestCoordinator_Open_Concurrent_KeepsSingleSubscription(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	slowHistory := func(context.Context, domain.UserID) ([]domain.Message, error) {
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	}
	f.store.EXPECT().ListMessages(gomock.Any(), domain.UserID("bob")).DoAndReturn(slowHistory).Times(2)

	// Given two overlapping opens of the same conversation against a slow store
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = f.coordinator.Open(context.Background(), "bob")
		}()
	}
	wg.Wait()

	// Then at least one wins and a loser only reports the change
	opened := 0
	for _, err := range results {
		if err == nil {
			opened++
			continue
		}
		req.ErrorIs(err, errors.ErrConversationChanged)
	}
	req.GreaterOrEqual(opened, 1)
	req.Equal(1, f.push.messages.len())
	req.Equal(1, f.push.typing.len())

	// And one push is appended exactly once
	f.push.messages.publish(messageFrom("bob", "alice", "hello"))
	req.Len(f.coordinator.Messages(), 1)
}

func TestCoordinator_Close_WhileOpening_InstallsNothing(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	loading := make(chan struct{})
	release := make(chan struct{})
	f.store.EXPECT().ListMessages(gomock.Any(), domain.UserID("bob")).
		DoAndReturn(func(context.Context, domain.UserID) ([]domain.Message, error) {
			close(loading)
			<-release
			return []domain.Message{messageFrom("bob", "alice", "old")}, nil
		})

	// Given an open waiting on the store
	result := make(chan error, 1)
	go func() { result <- f.coordinator.Open(context.Background(), "bob") }()
	<-loading

	// When the conversation is closed before the history arrives
	f.coordinator.Close()
	close(release)

	// Then the late open is discarded
	req.ErrorIs(<-result, errors.ErrConversationChanged)
	_, open := f.coordinator.Counterpart()
	req.False(open)
	req.Zero(f.push.messages.len())
	req.Zero(f.push.typing.len())
}

func TestCoordinator_Send_ClearsComposeState_AfterSwitch(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.open(t, "bob")
	f.coordinator.SetText(context.Background(), "hi bob")
	f.store.EXPECT().ListMessages(gomock.Any(), domain.UserID("carol")).Return(nil, nil)
	sent := messageFrom("alice", "bob", "hi bob")
	f.store.EXPECT().CreateMessage(gomock.Any(), domain.UserID("bob"), domain.Draft{Text: "hi bob"}).
		DoAndReturn(func(context.Context, domain.UserID, domain.Draft) (domain.Message, error) {
			// The user switches to carol while the request is in flight
			req.NoError(f.coordinator.Open(context.Background(), "carol"))
			return sent, nil
		})

	// When the send to bob succeeds
	message, err := f.coordinator.Send(context.Background())

	// Then compose state is cleared and carol's view is left alone
	req.NoError(err)
	req.Equal(sent, message)
	req.Empty(f.coordinator.Draft().Text)
	counterpart, _ := f.coordinator.Counterpart()
	req.Equal(domain.UserID("carol"), counterpart)
	req.Empty(f.coordinator.Messages())
}

func TestCoordinator_Open_Refuses_Self(t *testing.T) {
	f := newFixture(t)

	err := f.coordinator.Open(context.Background(), alice.ID)

	require.ErrorIs(t, err, errors.ErrInvalidRecipient)
}

func TestCoordinator_Typing_BothWays(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.open(t, "bob")

	// Each keystroke emits one signal to the counterpart
	f.coordinator.SetText(context.Background(), "h")
	f.coordinator.SetText(context.Background(), "he")
	req.Len(f.push.sent, 2)
	req.Equal(domain.TypingSignal{SenderID: "alice", SenderName: "Alice", RecipientID: "bob", IsTyping: true}, f.push.sent[0])

	// And bob's signals drive the indicator
	f.push.typing.publish(domain.TypingSignal{SenderID: "bob", SenderName: "Bob", RecipientID: "alice", IsTyping: true})
	state, label := f.coordinator.Typing()
	req.Equal(ShowingTyping, state)
	req.Equal("Bob is typing...", label)

	// Closing the conversation drops it
	f.coordinator.Close()
	state, _ = f.coordinator.Typing()
	req.Equal(Idle, state)
}
