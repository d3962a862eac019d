package errors

import (
	goerrors "errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")

	ErrValidation       = fmt.Errorf("validation failed")
	ErrEmptyDraft       = fmt.Errorf("%w: message has neither text nor image", ErrValidation)
	ErrNotAnImage       = fmt.Errorf("%w: selected file is not an image", ErrValidation)
	ErrNoConversation   = fmt.Errorf("%w: no conversation is open", ErrValidation)
	ErrInvalidRecipient = fmt.Errorf("%w: invalid recipient", ErrValidation)

	ErrStorage          = fmt.Errorf("storage failure")
	ErrUnauthenticated  = fmt.Errorf("unauthenticated")
	ErrUnknownEvent     = fmt.Errorf("unknown event kind")
	ErrMalformedEvent   = fmt.Errorf("malformed event")
	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrHubStopped       = fmt.Errorf("hub stopped")
	ErrOutboxFull       = fmt.Errorf("connection outbox full")

	ErrConversationChanged = fmt.Errorf("conversation changed while opening")
)

// MapToHTTPStatus translates domain errors into the status code returned by the REST surface.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case goerrors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case goerrors.Is(err, ErrValidation), goerrors.Is(err, ErrMalformedEvent):
		return http.StatusBadRequest
	case goerrors.Is(err, ErrStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
