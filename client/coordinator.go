package client

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Coordinator drives one user's open conversation: history load, subscriptions,
// sending with compose state kept on failure, and typing in both directions.
type Coordinator struct {
	mu        sync.Mutex
	log       *slog.Logger
	self      domain.AuthUser
	store     contract.MessageStore
	push      contract.PushChannel
	debouncer *TypingDebouncer
	emitter   *TypingEmitter
	notifier  contract.Notifier
	composer  Composer
	view      *ConversationView
	release   []contract.Unsubscribe

	// Bumped by every Open and Close so that a superseded Open installs nothing
	generation uint64
}

// NewCoordinator wires the collaborators. notifier may be nil.
func NewCoordinator(log *slog.Logger, self domain.AuthUser, store contract.MessageStore, push contract.PushChannel,
	debouncer *TypingDebouncer, emitter *TypingEmitter, notifier contract.Notifier) *Coordinator {
	return &Coordinator{
		log:       log.With("user_id", self.ID),
		self:      self,
		store:     store,
		push:      push,
		debouncer: debouncer,
		emitter:   emitter,
		notifier:  notifier,
	}
}

// Open loads the history with counterpart and subscribes to its pushes.
// A previously open conversation is closed first, so exactly one subscription stays alive.
// When another Open or Close happens while the history is loading, this call installs
// nothing and returns ErrConversationChanged.
func (c *Coordinator) Open(ctx context.Context, counterpart domain.UserID) error {
	if counterpart == "" || counterpart == c.self.ID {
		return fmt.Errorf("%w: %q", errors.ErrInvalidRecipient, counterpart)
	}
	c.mu.Lock()
	generation := c.resetLocked()
	c.mu.Unlock()

	history, err := c.store.ListMessages(ctx, counterpart)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		c.log.Debug("Conversation superseded while loading", "counterpart", counterpart)
		return fmt.Errorf("%w: %q", errors.ErrConversationChanged, counterpart)
	}
	c.view = NewConversationView(c.self.ID, counterpart, history)
	c.composer.Clear()
	c.emitter.Reset()
	c.debouncer.View(counterpart)
	c.release = []contract.Unsubscribe{
		c.push.OnNewMessage(c.Receive),
		c.push.OnTyping(c.debouncer.Observe),
	}
	c.log.Debug("Conversation opened", "counterpart", counterpart, "history", len(history))
	return nil
}

// Close tears the open conversation down and releases its subscriptions.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// resetLocked releases the open conversation and invalidates any Open in flight.
func (c *Coordinator) resetLocked() uint64 {
	c.generation++
	for _, unsubscribe := range c.release {
		unsubscribe()
	}
	c.release = nil
	c.view = nil
	c.debouncer.View("")
	return c.generation
}

// Shutdown closes the conversation and cancels the typing timer for good.
func (c *Coordinator) Shutdown() {
	c.Close()
	c.debouncer.Close()
}

// Send submits the compose state. Empty drafts never reach the store.
// On success the compose state is cleared. On failure it is left untouched, and so is the view.
func (c *Coordinator) Send(ctx context.Context) (domain.Message, error) {
	c.mu.Lock()
	view := c.view
	draft := c.composer.Draft()
	c.mu.Unlock()

	if err := draft.Validate(); err != nil {
		return domain.Message{}, err
	}
	if view == nil {
		return domain.Message{}, errors.ErrNoConversation
	}

	message, err := c.store.CreateMessage(ctx, view.Counterpart, draft.Normalize())
	if err != nil {
		c.log.Error("Unable to send message", "counterpart", view.Counterpart, "error", err)
		return domain.Message{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.composer.Clear()
	// A conversation opened while the request was in flight doesn't get the message.
	if c.view == view {
		view.Append(message)
	}
	return message, nil
}

// Receive appends a pushed message when it comes from the open counterpart.
// Anything else goes to the notifier and leaves the view alone.
func (c *Coordinator) Receive(message domain.Message) {
	c.mu.Lock()
	if c.view != nil && message.SenderID == c.view.Counterpart {
		c.view.Append(message)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if c.notifier != nil {
		c.notifier.Notify(message)
	}
}

// SetText updates the text input and tells the counterpart we are typing.
func (c *Coordinator) SetText(ctx context.Context, text string) {
	c.mu.Lock()
	c.composer.SetText(text)
	var counterpart domain.UserID
	if c.view != nil {
		counterpart = c.view.Counterpart
	}
	c.mu.Unlock()

	if err := c.emitter.Emit(ctx, counterpart); err != nil {
		c.log.Debug("Typing signal not sent", "counterpart", counterpart, "error", err)
	}
}

func (c *Coordinator) AttachImage(name, contentType string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.composer.AttachImage(name, contentType, data)
}

func (c *Coordinator) RemoveImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.composer.RemoveImage()
}

// Draft returns the current compose state.
func (c *Coordinator) Draft() domain.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.composer.Draft()
}

func (c *Coordinator) Counterpart() (domain.UserID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return "", false
	}
	return c.view.Counterpart, true
}

func (c *Coordinator) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view == nil {
		return nil
	}
	return c.view.Messages()
}

func (c *Coordinator) Typing() (TypingState, string) {
	return c.debouncer.State(), c.debouncer.Label()
}
