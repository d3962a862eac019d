package event

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEncode_WrapsKindAndPayload(t *testing.T) {
	req := require.New(t)
	evt := Typing{domain.TypingSignal{SenderID: "alice", SenderName: "Alice", RecipientID: "bob", IsTyping: true}}

	data, err := Encode(evt)

	req.NoError(err)
	req.Equal("typing", gjson.GetBytes(data, "kind").String())
	req.Equal("alice", gjson.GetBytes(data, "payload.senderId").String())
	req.Equal("bob", gjson.GetBytes(data, "payload.receiverId").String())
	req.True(gjson.GetBytes(data, "payload.isTyping").Bool())
}

func TestDecode_AllKinds(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []Event{
		RosterUpdated{Online: domain.Roster{"alice", "bob"}},
		Typing{domain.TypingSignal{SenderID: "alice", SenderName: "Alice", RecipientID: "bob", IsTyping: true}},
		NewMessage{domain.Message{ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", Text: "hi", CreatedAt: at}},
	}
	for _, evt := range events {
		t.Run(string(evt.Kind()), func(t *testing.T) {
			req := require.New(t)
			data, err := Encode(evt)
			req.NoError(err)

			decoded, err := Decode(data)

			req.NoError(err)
			req.Equal(evt, decoded)
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"not json", `{"kind":`, errors.ErrMalformedEvent},
		{"missing payload", `{"kind":"typing"}`, errors.ErrMalformedEvent},
		{"kind not a string", `{"kind":3,"payload":{}}`, errors.ErrMalformedEvent},
		{"unknown kind", `{"kind":"getOnlineUsers","payload":{}}`, errors.ErrUnknownEvent},
		{"wrong payload shape", `{"kind":"roster.updated","payload":{"online":"alice"}}`, errors.ErrMalformedEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
