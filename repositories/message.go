package repositories

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	messagePrefix = "msg:"
	sequenceKey   = "seq:messages"
	// Number of sequence values leased from Badger at once
	sequenceBandwidth = 128
)

// MessageRepository persists conversations between two users in BadgerDB.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
	now           func() time.Time

	mu       sync.Mutex
	sequence *badger.Sequence
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages, now: time.Now}
}

var _ contract.MessageRepository = (*MessageRepository)(nil)

// CreateMessage validates and stores a draft, and returns the canonical message.
// The key is formatted as "msg:{conversation}:{timestamp_padded}:{sequence_padded}:{uuid}" to:
//  1. Keep both directions of a conversation under a single prefix.
//  2. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  3. Keep insertion order among messages created within the same millisecond.
func (m *MessageRepository) CreateMessage(ctx context.Context, sender, recipient domain.UserID, draft domain.Draft) (domain.Message, error) {
	if recipient == "" || recipient == sender {
		return domain.Message{}, fmt.Errorf("%w: %q", errors.ErrInvalidRecipient, recipient)
	}
	if err := draft.Validate(); err != nil {
		return domain.Message{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}

	draft = draft.Normalize()
	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: recipient,
		Text:       draft.Text,
		Image:      draft.Image,
		// Millisecond precision, also strips the monotonic clock reading
		CreatedAt: m.now().UTC().Truncate(time.Millisecond),
	}

	bytes, err := encodeMessage(message)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	sequence, err := m.nextSequence()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	key := fmt.Sprintf("%s%019d:%019d:%s",
		conversationPrefix(sender, recipient),
		message.CreatedAt.UnixNano(),
		sequence,
		message.ID,
	)
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	m.log.Debug("Message stored", "message_id", message.ID, "sender", sender, "recipient", recipient)
	return message, nil
}

// ListMessages returns the conversation between self and counterpart in chronological order.
// When a limit is configured only the most recent messages are returned.
func (m *MessageRepository) ListMessages(ctx context.Context, self, counterpart domain.UserID) ([]domain.Message, error) {
	if counterpart == "" {
		return nil, fmt.Errorf("%w: empty counterpart", errors.ErrInvalidRecipient)
	}
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(conversationPrefix(self, counterpart))
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Newest first: seek past the greatest possible timestamp
		seekKey := append(slices.Clone(prefix), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}

	messages := make([]domain.Message, 0, len(byteMessages))
	for _, b := range byteMessages {
		message, err := decodeMessage(b)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
		}
		messages = append(messages, message)
	}
	slices.Reverse(messages)
	return messages, nil
}

// Walk visits every stored message in key order, conversation by conversation.
// Undecodable values are reported to fn with a zero message and the decoding error.
func (m *MessageRepository) Walk(ctx context.Context, fn func(key string, message domain.Message, err error) error) error {
	return m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(messagePrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(v []byte) error {
				message, decodeErr := decodeMessage(v)
				return fn(key, message, decodeErr)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// nextSequence leases the Badger sequence on first use.
func (m *MessageRepository) nextSequence() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sequence == nil {
		sequence, err := m.db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
		if err != nil {
			return 0, err
		}
		m.sequence = sequence
	}
	return m.sequence.Next()
}

// Close returns the unused sequence lease. It must run before the database is closed.
func (m *MessageRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sequence == nil {
		return nil
	}
	err := m.sequence.Release()
	m.sequence = nil
	return err
}

// conversationPrefix is identical for (a, b) and (b, a).
// Identities are hex encoded so that they can't collide with the separators.
func conversationPrefix(a, b domain.UserID) string {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	return fmt.Sprintf("%s%s.%s:", messagePrefix,
		hex.EncodeToString([]byte(first)),
		hex.EncodeToString([]byte(second)))
}

func encodeMessage(message domain.Message) ([]byte, error) {
	record, err := structpb.NewStruct(map[string]any{
		"id":        message.ID.String(),
		"sender":    string(message.SenderID),
		"receiver":  string(message.ReceiverID),
		"text":      message.Text,
		"image":     message.Image,
		"createdAt": message.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(record)
}

func decodeMessage(b []byte) (domain.Message, error) {
	var record structpb.Struct
	if err := proto.Unmarshal(b, &record); err != nil {
		return domain.Message{}, err
	}
	fields := record.GetFields()
	id, err := uuid.Parse(fields["id"].GetStringValue())
	if err != nil {
		return domain.Message{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, fields["createdAt"].GetStringValue())
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         id,
		SenderID:   domain.UserID(fields["sender"].GetStringValue()),
		ReceiverID: domain.UserID(fields["receiver"].GetStringValue()),
		Text:       fields["text"].GetStringValue(),
		Image:      fields["image"].GetStringValue(),
		CreatedAt:  createdAt.UTC(),
	}, nil
}
