package client

import (
	"chat-presence/domain"
	"chat-presence/errors"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHTTPStore(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	stored := domain.Message{ID: uuid.New(), SenderID: "alice", ReceiverID: "bob", Text: "hi", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/messages/send/{id}", func(w http.ResponseWriter, r *http.Request) {
		var draft domain.Draft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil || r.PathValue("id") != "bob" || draft.Text != "hi" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "bad draft"})
			return
		}
		_ = json.NewEncoder(w).Encode(stored)
	})
	mux.HandleFunc("GET /api/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.PathValue("id") == "broken" {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
			return
		}
		_ = json.NewEncoder(w).Encode([]domain.Message{stored})
	})
	server := httptest.NewServer(mux)
	defer server.Close()
	store := NewHTTPStore(server.URL+"/", "token", server.Client())

	message, err := store.CreateMessage(ctx, "bob", domain.Draft{Text: "hi"})
	req.NoError(err)
	req.Equal(stored, message)

	messages, err := store.ListMessages(ctx, "bob")
	req.NoError(err)
	req.Equal([]domain.Message{stored}, messages)

	_, err = store.CreateMessage(ctx, "bob", domain.Draft{Text: "other"})
	req.ErrorIs(err, errors.ErrStorage)
	req.Contains(err.Error(), "bad draft")

	_, err = store.ListMessages(ctx, "broken")
	req.ErrorIs(err, errors.ErrStorage)

	_, err = NewHTTPStore(server.URL, "nope", nil).ListMessages(ctx, "bob")
	req.ErrorIs(err, errors.ErrStorage)
}
