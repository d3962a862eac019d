package event

import (
	"chat-presence/errors"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

type envelope struct {
	Kind    Kind  `json:"kind"`
	Payload Event `json:"payload"`
}

// Encode wraps the event into its {"kind", "payload"} envelope.
func Encode(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil event", errors.ErrMalformedEvent)
	}
	return json.Marshal(envelope{Kind: e.Kind(), Payload: e})
}

// Decode reads the envelope kind first and only then unmarshals the payload into the matching type.
func Decode(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", errors.ErrMalformedEvent)
	}
	kind := gjson.GetBytes(data, "kind")
	payload := gjson.GetBytes(data, "payload")
	if kind.Type != gjson.String || !payload.IsObject() {
		return nil, fmt.Errorf("%w: missing kind or payload", errors.ErrMalformedEvent)
	}

	raw := []byte(payload.Raw)
	switch Kind(kind.String()) {
	case KindRosterUpdated:
		return decodeAs[RosterUpdated](raw)
	case KindTyping:
		return decodeAs[Typing](raw)
	case KindNewMessage:
		return decodeAs[NewMessage](raw)
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, kind.String())
	}
}

func decodeAs[T Event](raw []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	return e, nil
}
