//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-presence/domain"
	"chat-presence/domain/event"
	"context"
	"net/http"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is a live channel bound to one user for its whole lifetime.
// Deliver must not block the caller: it either enqueues the event or fails.
type Connection interface {
	ID() uuid.UUID
	UserID() domain.UserID
	Deliver(ctx context.Context, e event.Event) error
}

type IRegistry interface {
	Register(conn Connection) (Connection, bool)
	Unregister(conn Connection) bool
	Connection(userID domain.UserID) (Connection, bool)
	Snapshot() (domain.Roster, []Connection)
	Roster() domain.Roster
}

// IHub is the single writer of the registry as seen by the transport and the REST layer.
type IHub interface {
	Connect(ctx context.Context, conn Connection) error
	Disconnect(ctx context.Context, conn Connection) error
	Typing(ctx context.Context, signal domain.TypingSignal) error
	PushMessage(ctx context.Context, message domain.Message) error
	Roster() domain.Roster
}

// MessageRepository is the server side storage collaborator.
type MessageRepository interface {
	CreateMessage(ctx context.Context, sender, recipient domain.UserID, draft domain.Draft) (domain.Message, error)
	ListMessages(ctx context.Context, self, counterpart domain.UserID) ([]domain.Message, error)
}

// Authenticator resolves the identity carried by a handshake or a REST call.
type Authenticator interface {
	Authenticate(r *http.Request) (domain.AuthUser, error)
}

// MessageStore is the storage collaborator as seen by a client acting for one user.
type MessageStore interface {
	CreateMessage(ctx context.Context, recipient domain.UserID, draft domain.Draft) (domain.Message, error)
	ListMessages(ctx context.Context, counterpart domain.UserID) ([]domain.Message, error)
}

type Unsubscribe func()

// PushChannel is the client end of the real-time transport.
type PushChannel interface {
	SendTyping(ctx context.Context, signal domain.TypingSignal) error
	OnNewMessage(handler func(domain.Message)) Unsubscribe
	OnTyping(handler func(domain.TypingSignal)) Unsubscribe
	OnRoster(handler func(domain.Roster)) Unsubscribe
}

// Notifier receives pushed messages that don't belong to the open conversation.
type Notifier interface {
	Notify(message domain.Message)
}
