package services

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"context"
	"log/slog"
)

type IChatService interface {
	SendMessage(ctx context.Context, sender, recipient domain.UserID, draft domain.Draft) (domain.Message, error)
	GetMessages(ctx context.Context, self, counterpart domain.UserID) ([]domain.Message, error)
	Online() domain.Roster
}

// ChatService persists messages through the storage collaborator
// and pushes the canonical record to the recipient once it is stored.
type ChatService struct {
	log        *slog.Logger
	repository contract.MessageRepository
	hub        contract.IHub
}

func NewChatService(log *slog.Logger, repository contract.MessageRepository, hub contract.IHub) *ChatService {
	return &ChatService{log: log, repository: repository, hub: hub}
}

func (s *ChatService) SendMessage(ctx context.Context, sender, recipient domain.UserID, draft domain.Draft) (domain.Message, error) {
	message, err := s.repository.CreateMessage(ctx, sender, recipient, draft)
	if err != nil {
		return domain.Message{}, err
	}
	// Stored already: a failed push only means the recipient reads it from history.
	if err := s.hub.PushMessage(ctx, message); err != nil {
		s.log.Error("Unable to push message", "message_id", message.ID, "receiver_id", recipient, "error", err)
	}
	return message, nil
}

func (s *ChatService) GetMessages(ctx context.Context, self, counterpart domain.UserID) ([]domain.Message, error) {
	return s.repository.ListMessages(ctx, self, counterpart)
}

func (s *ChatService) Online() domain.Roster {
	return s.hub.Roster()
}
