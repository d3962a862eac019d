package client

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/domain/event"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
)

// Session is the client end of the push channel.
// Handlers run on the goroutine calling Run, in the order events arrive.
type Session struct {
	log      *slog.Logger
	conn     *websocket.Conn
	messages subscribers[domain.Message]
	typing   subscribers[domain.TypingSignal]
	rosters  subscribers[domain.Roster]

	mu     sync.RWMutex
	roster domain.Roster
}

var _ contract.PushChannel = (*Session)(nil)

// Dial opens the websocket at serverURL/ws, presenting token as a bearer credential.
func Dial(ctx context.Context, log *slog.Logger, serverURL, token string) (*Session, error) {
	conn, _, err := websocket.Dial(ctx, socketURL(serverURL), &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + token}},
	})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", serverURL, err)
	}
	return NewSession(log, conn), nil
}

func NewSession(log *slog.Logger, conn *websocket.Conn) *Session {
	return &Session{log: log, conn: conn}
}

// Run reads events until the connection ends or ctx is canceled.
func (s *Session) Run(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}
		e, err := event.Decode(data)
		if err != nil {
			s.log.Warn("Event ignored", "error", err)
			continue
		}
		s.dispatch(e)
	}
}

func (s *Session) dispatch(e event.Event) {
	switch evt := e.(type) {
	case event.RosterUpdated:
		s.mu.Lock()
		s.roster = evt.Online
		s.mu.Unlock()
		s.rosters.publish(evt.Online)
	case event.Typing:
		s.typing.publish(evt.TypingSignal)
	case event.NewMessage:
		s.messages.publish(evt.Message)
	default:
		panic(fmt.Sprintf("unhandled event %T", e))
	}
}

func (s *Session) SendTyping(ctx context.Context, signal domain.TypingSignal) error {
	data, err := event.Encode(event.Typing{TypingSignal: signal})
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *Session) OnNewMessage(handler func(domain.Message)) contract.Unsubscribe {
	return s.messages.add(handler)
}

func (s *Session) OnTyping(handler func(domain.TypingSignal)) contract.Unsubscribe {
	return s.typing.add(handler)
}

func (s *Session) OnRoster(handler func(domain.Roster)) contract.Unsubscribe {
	return s.rosters.add(handler)
}

// Roster is the last snapshot received.
func (s *Session) Roster() domain.Roster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roster
}

func (s *Session) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "bye")
}

func socketURL(serverURL string) string {
	u := strings.TrimSuffix(serverURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

type subscriber[T any] struct {
	id      int
	handler func(T)
}

// subscribers keeps handlers in registration order.
type subscribers[T any] struct {
	mu   sync.Mutex
	next int
	list []subscriber[T]
}

func (s *subscribers[T]) add(handler func(T)) contract.Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.list = append(s.list, subscriber[T]{id: id, handler: handler})
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.list {
				if sub.id == id {
					s.list = append(s.list[:i:i], s.list[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *subscribers[T]) publish(value T) {
	s.mu.Lock()
	list := append([]subscriber[T](nil), s.list...)
	s.mu.Unlock()
	for _, sub := range list {
		sub.handler(value)
	}
}

func (s *subscribers[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}
