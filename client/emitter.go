package client

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/time/rate"
)

// TypingEmitter sends one active typing signal per text change.
// With a positive throttle it sends at most one per window and per counterpart.
type TypingEmitter struct {
	mu          sync.Mutex
	clock       clock.Clock
	push        contract.PushChannel
	self        domain.AuthUser
	throttle    time.Duration
	limiter     *rate.Limiter
	counterpart domain.UserID
}

func NewTypingEmitter(clk clock.Clock, push contract.PushChannel, self domain.AuthUser, throttle time.Duration) *TypingEmitter {
	return &TypingEmitter{clock: clk, push: push, self: self, throttle: throttle}
}

func (e *TypingEmitter) Emit(ctx context.Context, counterpart domain.UserID) error {
	if counterpart == "" {
		return nil
	}
	if !e.allow(counterpart) {
		return nil
	}
	return e.push.SendTyping(ctx, domain.TypingSignal{
		SenderID:    e.self.ID,
		SenderName:  e.self.DisplayName,
		RecipientID: counterpart,
		IsTyping:    true,
	})
}

// Reset forgets the throttle state, the next keystroke is always sent.
func (e *TypingEmitter) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.limiter = nil
	e.counterpart = ""
}

func (e *TypingEmitter) allow(counterpart domain.UserID) bool {
	if e.throttle <= 0 {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.limiter == nil || e.counterpart != counterpart {
		e.limiter = rate.NewLimiter(rate.Every(e.throttle), 1)
		e.counterpart = counterpart
	}
	return e.limiter.AllowN(e.clock.Now(), 1)
}
