package repositories

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// steppingClock returns a strictly increasing time on every call.
func steppingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func Test_Same_Instant_Keeps_Insertion_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	t.Cleanup(func() { _ = repository.Close() })
	instant := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repository.now = func() time.Time { return instant }

	// Given twenty messages created at the very same instant
	var sent []domain.Message
	for i := range 20 {
		message, err := repository.CreateMessage(ctx, "alice", "bob", domain.Draft{Text: fmt.Sprintf("m%02d", i)})
		req.NoError(err)
		sent = append(sent, message)
	}

	// When the conversation is listed
	got, err := repository.ListMessages(ctx, "bob", "alice")

	// Then they come back in the order they were stored
	req.NoError(err)
	req.Equal(sent, got)
}

func Test_Create_And_List_Conversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	repository.now = steppingClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	// Given a conversation in both directions and an unrelated one
	m1, err := repository.CreateMessage(ctx, "alice", "bob", domain.Draft{Text: "  hi bob "})
	req.NoError(err)
	m2, err := repository.CreateMessage(ctx, "bob", "alice", domain.Draft{Text: "hi alice"})
	req.NoError(err)
	_, err = repository.CreateMessage(ctx, "alice", "carol", domain.Draft{Text: "hi carol"})
	req.NoError(err)
	m3, err := repository.CreateMessage(ctx, "alice", "bob", domain.Draft{Text: " ", Image: "data:image/png;base64,AAAA"})
	req.NoError(err)

	// When each side lists the conversation
	fromAlice, err := repository.ListMessages(ctx, "alice", "bob")
	req.NoError(err)
	fromBob, err := repository.ListMessages(ctx, "bob", "alice")
	req.NoError(err)

	// Then both get the same chronological, canonical records
	req.Equal([]domain.Message{m1, m2, m3}, fromAlice)
	req.Equal(fromAlice, fromBob)
	req.Equal("hi bob", m1.Text)
	req.Empty(m3.Text)
	req.Equal(domain.UserID("alice"), m1.SenderID)
	req.Equal(domain.UserID("bob"), m1.ReceiverID)
}

func Test_List_With_Limit_Keeps_Most_Recent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), lo.ToPtr(2))
	repository.now = steppingClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	var created []domain.Message
	for _, text := range []string{"one", "two", "three"} {
		m, err := repository.CreateMessage(ctx, "alice", "bob", domain.Draft{Text: text})
		req.NoError(err)
		created = append(created, m)
	}

	fetched, err := repository.ListMessages(ctx, "bob", "alice")

	req.NoError(err)
	req.Equal(created[1:], fetched)
}

func Test_Create_Rejects_Invalid_Input(t *testing.T) {
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)

	tests := []struct {
		name      string
		recipient domain.UserID
		draft     domain.Draft
		wantErr   error
	}{
		{"empty recipient", "", domain.Draft{Text: "hi"}, errors.ErrInvalidRecipient},
		{"self recipient", "alice", domain.Draft{Text: "hi"}, errors.ErrInvalidRecipient},
		{"empty draft", "bob", domain.Draft{Text: "  "}, errors.ErrEmptyDraft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repository.CreateMessage(ctx, "alice", tt.recipient, tt.draft)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	messages, err := repository.ListMessages(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Empty(t, messages)
}

func Test_Conversation_Prefix_Is_Symmetric_And_Unambiguous(t *testing.T) {
	req := require.New(t)

	req.Equal(conversationPrefix("alice", "bob"), conversationPrefix("bob", "alice"))
	req.NotEqual(conversationPrefix("a:b", "c"), conversationPrefix("a", "b:c"))
}

func Test_Walk_Visits_Every_Conversation(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default(), nil)
	repository.now = steppingClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	_, err := repository.CreateMessage(ctx, "alice", "bob", domain.Draft{Text: "one"})
	req.NoError(err)
	_, err = repository.CreateMessage(ctx, "carol", "alice", domain.Draft{Text: "two"})
	req.NoError(err)

	var texts []string
	err = repository.Walk(ctx, func(key string, message domain.Message, err error) error {
		req.NoError(err)
		req.True(strings.HasPrefix(key, messagePrefix))
		texts = append(texts, message.Text)
		return nil
	})
	req.NoError(err)
	req.ElementsMatch([]string{"one", "two"}, texts)
}
