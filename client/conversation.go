// Package client holds the per-user side of the chat: the open conversation,
// its compose state, typing indicators and the transports feeding them.
package client

import (
	"chat-presence/domain"
	"slices"
)

// ConversationView is the local, append-only timeline between Owner and Counterpart.
type ConversationView struct {
	Owner       domain.UserID
	Counterpart domain.UserID
	messages    []domain.Message
}

func NewConversationView(owner, counterpart domain.UserID, history []domain.Message) *ConversationView {
	return &ConversationView{
		Owner:       owner,
		Counterpart: counterpart,
		messages:    slices.Clone(history),
	}
}

func (v *ConversationView) Append(message domain.Message) {
	v.messages = append(v.messages, message)
}

// Messages returns a copy, the view itself only ever grows.
func (v *ConversationView) Messages() []domain.Message {
	return slices.Clone(v.messages)
}

func (v *ConversationView) Len() int {
	return len(v.messages)
}
