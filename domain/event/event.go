// Package event defines the closed set of real-time events exchanged with clients.
// Every event has a fixed payload shape and is dispatched with an exhaustive type switch.
package event

import (
	"chat-presence/domain"
)

type Kind string

const (
	KindRosterUpdated Kind = "roster.updated"
	KindTyping        Kind = "typing"
	KindNewMessage    Kind = "message.new"
)

// Event is implemented only by the types of this package.
type Event interface {
	Kind() Kind
	sealed()
}

// RosterUpdated carries the full list of identities currently online.
type RosterUpdated struct {
	Online domain.Roster `json:"online"`
}

func (RosterUpdated) Kind() Kind { return KindRosterUpdated }
func (RosterUpdated) sealed()    {}

// Typing is a directed signal relayed verbatim to its recipient.
type Typing struct {
	domain.TypingSignal
}

func (Typing) Kind() Kind { return KindTyping }
func (Typing) sealed()    {}

// NewMessage pushes a canonical message to its recipient.
type NewMessage struct {
	domain.Message
}

func (NewMessage) Kind() Kind { return KindNewMessage }
func (NewMessage) sealed()    {}
