//go:generate go run go.uber.org/mock/mockgen -source=presence.go -destination=../mocks/mock_presence_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
)

type IPresenceRepository interface {
	SetStatus(channel, username string, online bool) error
	ListStatuses(channel string) ([]domain.UserStatus, error)
}

// PresenceRepository tracks the last-known online/offline status per
// (channel, username). One current record per user: a transition overwrites
// the previous one, it never appends.
type PresenceRepository struct {
	db *badger.DB
}

func NewPresenceRepository(db *badger.DB) PresenceRepository {
	return PresenceRepository{db: db}
}

func presenceKey(channel, username string) []byte {
	return []byte(fmt.Sprintf("presence:%s:%s", channel, username))
}

func presencePrefix(channel string) []byte {
	return []byte(fmt.Sprintf("presence:%s:", channel))
}

// SetStatus overwrites the user's current record with a new status and
// timestamp. Idempotent per (channel, username).
func (p PresenceRepository) SetStatus(channel, username string, online bool) error {
	status := domain.StatusOffline
	if online {
		status = domain.StatusOnline
	}
	record := domain.UserStatus{
		Username: username,
		Status:   status,
		At:       time.Now().UTC(),
	}
	bytes, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(presenceKey(channel, username), bytes)
	})
}

// ListStatuses returns every known (username, status, timestamp) tuple for
// the channel, offline users included. An unknown channel yields an empty
// slice.
func (p PresenceRepository) ListStatuses(channel string) ([]domain.UserStatus, error) {
	statuses := make([]domain.UserStatus, 0)
	err := p.db.View(func(txn *badger.Txn) error {
		prefix := presencePrefix(channel)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var status domain.UserStatus
				if err := json.Unmarshal(value, &status); err != nil {
					return err
				}
				statuses = append(statuses, status)
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
	return statuses, nil
}
