package services

import (
	"chat-presence/auth"
	"chat-presence/domain"
	"chat-presence/errors"
	"fmt"
	"strings"
)

type IAuthService interface {
	IssueToken(user domain.AuthUser) (Token, error)
}

// AuthService issues tokens on behalf of the external auth collaborator.
// Only chatctl and tests use it, the real credential flow lives elsewhere.
type AuthService struct {
	tokens *auth.Tokens
}

type Token string

func (t Token) String() string {
	return string(t)
}

func NewAuthService(tokens *auth.Tokens) IAuthService {
	return &AuthService{tokens: tokens}
}

func (s *AuthService) IssueToken(user domain.AuthUser) (Token, error) {
	user.ID = domain.UserID(strings.TrimSpace(string(user.ID)))
	if user.ID == "" {
		return "", fmt.Errorf("%w: user id is required", errors.ErrValidation)
	}
	if user.DisplayName == "" {
		user.DisplayName = string(user.ID)
	}
	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		return "", err
	}
	return Token(token), nil
}
