package client

import (
	"bytes"
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTPStore talks to the REST side of the server on behalf of the token owner.
type HTTPStore struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewHTTPStore(baseURL, token string, httpClient *http.Client) *HTTPStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPStore{baseURL: strings.TrimSuffix(baseURL, "/"), token: token, http: httpClient}
}

var _ contract.MessageStore = (*HTTPStore)(nil)

func (s *HTTPStore) CreateMessage(ctx context.Context, recipient domain.UserID, draft domain.Draft) (domain.Message, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	var message domain.Message
	err = s.do(ctx, http.MethodPost, "/api/messages/send/"+url.PathEscape(string(recipient)), bytes.NewReader(body), &message)
	return message, err
}

func (s *HTTPStore) ListMessages(ctx context.Context, counterpart domain.UserID) ([]domain.Message, error) {
	var messages []domain.Message
	err := s.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(string(counterpart)), nil, &messages)
	return messages, err
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%w: %s %s: %d %s", errors.ErrStorage, method, path, resp.StatusCode, apiErr.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", errors.ErrStorage, err)
	}
	return nil
}
