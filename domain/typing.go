package domain

import "fmt"

// TypingSignal is a directed, never persisted, best-effort notification.
type TypingSignal struct {
	SenderID    UserID `json:"senderId" validate:"required"`
	SenderName  string `json:"senderName"`
	RecipientID UserID `json:"receiverId" validate:"required"`
	IsTyping    bool   `json:"isTyping"`
}

// Label is the text shown by the receiving client.
func (s TypingSignal) Label() string {
	name := s.SenderName
	if name == "" {
		name = string(s.SenderID)
	}
	return fmt.Sprintf("%s is typing...", name)
}
