//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"chat-relay/domain"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetMessages(channel string) ([]DiskMessage, error)
	SearchMessages(ctx context.Context, channel, terms string, limit int) ([]DiskMessage, error)
}

// MessageRepository is the durable, append-only channel log. BadgerDB is the
// source of truth; an optional bluge writer maintains a full-text index next
// to it for history search.
type MessageRepository struct {
	db    *badger.DB
	index *bluge.Writer
	log   *slog.Logger
}

func NewMessageRepository(db *badger.DB, index *bluge.Writer, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, index: index, log: log}
}

// DiskMessage is the stored form of a chat or system record. The JSON shape
// doubles as the history query response, so there is a single codec for disk
// and wire.
type DiskMessage struct {
	ID       uuid.UUID `json:"id"`
	Channel  string    `json:"-"`
	Username string    `json:"username"`
	Content  string    `json:"message"`
	Lang     string    `json:"lang,omitempty"`
	System   bool      `json:"system,omitempty"`
	At       time.Time `json:"timestamp"`
}

// messageKey formats the badger key as "msg:{channel}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological iteration using 19-digit zero padding
//     (lexicographical order equals write order).
//  2. Prevent data loss by using the UUID as a collision disambiguator if two
//     messages arrive at the same nanosecond.
func messageKey(m DiskMessage) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.Channel, m.At.UnixNano(), m.ID))
}

func messagePrefix(channel string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", channel))
}

// StoreMessage appends one record to the channel's log and indexes its
// content. Safe for interleaved writers: each session writes under its own
// badger transaction and keys never collide.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := messageKey(message)
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bytes)
	})
	if err != nil {
		return err
	}
	return m.indexMessage(string(key), message)
}

// indexMessage mirrors the record into the bluge index. The badger write has
// already succeeded at this point, so an index failure degrades search only.
func (m MessageRepository) indexMessage(key string, message DiskMessage) error {
	if m.index == nil || message.System {
		return nil
	}
	doc := bluge.NewDocument(key).
		AddField(bluge.NewKeywordField("channel", message.Channel)).
		AddField(bluge.NewKeywordField("username", message.Username)).
		AddField(bluge.NewTextField("content", message.Content))
	if err := m.index.Update(doc.ID(), doc); err != nil {
		m.log.Warn("Search index update failed", "channel", message.Channel, "error", err)
		return err
	}
	return nil
}

// GetMessages replays the full ordered log for a channel. Records carrying
// the heartbeat token are filtered out; an unknown channel yields an empty
// slice, not an error.
func (m MessageRepository) GetMessages(channel string) ([]DiskMessage, error) {
	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(channel)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]DiskMessage, 0, len(raw))
	for _, b := range raw {
		var dm DiskMessage
		if err := json.Unmarshal(b, &dm); err != nil {
			return nil, err
		}
		if dm.Content == domain.HeartbeatToken {
			continue
		}
		dm.Channel = channel
		messages = append(messages, dm)
	}
	return messages, nil
}

// SearchMessages runs a full-text match over one channel's indexed content
// and resolves the hits back through badger, in chronological order.
func (m MessageRepository) SearchMessages(ctx context.Context, channel, terms string, limit int) ([]DiskMessage, error) {
	if m.index == nil {
		return nil, nil
	}

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(bluge.NewTermQuery(channel).SetField("channel"))

	reader, err := m.index.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var keys []string
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				keys = append(keys, string(value))
			}
			return true
		})
		if err != nil {
			return nil, err
		}
	}

	// Key order is chronological order thanks to the padded timestamp.
	sort.Strings(keys)

	var messages []DiskMessage
	err = m.db.View(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get([]byte(key))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(value []byte) error {
				var dm DiskMessage
				if err := json.Unmarshal(value, &dm); err != nil {
					return err
				}
				dm.Channel = channel
				messages = append(messages, dm)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ToDomain converts stored records to domain messages.
func ToDomain(messages []DiskMessage) []domain.Message {
	return lo.Map(messages, func(item DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:       item.ID,
			Channel:  item.Channel,
			Username: item.Username,
			Content:  item.Content,
			Lang:     item.Lang,
			System:   item.System,
			At:       item.At,
		}
	})
}
