package auth

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"net/http"
	"strings"
)

const (
	// CookieName is the session cookie set by the auth collaborator.
	CookieName = "jwt"
	// TokenQueryParam lets browsers pass a token on the WebSocket handshake, where headers can't be set.
	TokenQueryParam = "token"
	// UserIDQueryParam carries a bare identity when query identities are allowed (development only).
	UserIDQueryParam = "userId"
	NameQueryParam   = "name"
)

// RequestAuthenticator resolves the caller from, in order: the Authorization bearer token,
// the jwt cookie, the token query parameter and, if allowed, the userId query parameter.
type RequestAuthenticator struct {
	tokens             *Tokens
	allowQueryIdentity bool
}

func NewRequestAuthenticator(tokens *Tokens, allowQueryIdentity bool) *RequestAuthenticator {
	return &RequestAuthenticator{tokens: tokens, allowQueryIdentity: allowQueryIdentity}
}

var _ contract.Authenticator = (*RequestAuthenticator)(nil)

func (a *RequestAuthenticator) Authenticate(r *http.Request) (domain.AuthUser, error) {
	if token := bearerToken(r); token != "" {
		return a.tokens.ValidateToken(token)
	}
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return a.tokens.ValidateToken(cookie.Value)
	}
	query := r.URL.Query()
	if token := query.Get(TokenQueryParam); token != "" {
		return a.tokens.ValidateToken(token)
	}
	if a.allowQueryIdentity {
		if id := strings.TrimSpace(query.Get(UserIDQueryParam)); id != "" {
			name := query.Get(NameQueryParam)
			if name == "" {
				name = id
			}
			return domain.AuthUser{ID: domain.UserID(id), DisplayName: name}, nil
		}
	}
	return domain.AuthUser{}, errors.ErrUnauthenticated
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
