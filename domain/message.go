// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable once issued by the storage collaborator.
package domain

import (
	"chat-presence/errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is the canonical chat record issued by the storage collaborator.
type Message struct {
	ID         uuid.UUID `json:"id"`
	SenderID   UserID    `json:"senderId"`
	ReceiverID UserID    `json:"receiverId"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Involves reports whether the message belongs to the conversation between a and b.
func (m Message) Involves(a, b UserID) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Draft is the compose state submitted to the storage collaborator.
// Image holds an inline data URL.
type Draft struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

// Normalize trims the text part. Whitespace-only text paired with an image stays valid.
func (d Draft) Normalize() Draft {
	return Draft{Text: strings.TrimSpace(d.Text), Image: d.Image}
}

// Validate rejects drafts with neither text nor image once trimmed.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Text) == "" && d.Image == "" {
		return errors.ErrEmptyDraft
	}
	return nil
}
