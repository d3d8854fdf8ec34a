package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"chat-relay/domain"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestIndex(t *testing.T) *bluge.Writer {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return writer
}

func diskMessage(channel, username, content string, at time.Time) DiskMessage {
	return DiskMessage{
		ID:       uuid.New(),
		Channel:  channel,
		Username: username,
		Content:  content,
		At:       at,
	}
}

func TestMessageRepository_StoreAndReplayInOrder(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), nil, slog.Default())

	at := time.Now().UTC()
	stored := []DiskMessage{
		diskMessage("general", "alice", "first", at),
		diskMessage("general", "bob", "second", at.Add(1*time.Minute)),
		diskMessage("general", "clara", "third", at.Add(2*time.Minute)),
	}
	for _, dm := range stored {
		req.NoError(repository.StoreMessage(dm))
	}

	fetched, err := repository.GetMessages("general")
	req.NoError(err)
	req.Len(fetched, len(stored))
	for i := range stored {
		req.Equal(stored[i].Username, fetched[i].Username)
		req.Equal(stored[i].Content, fetched[i].Content)
	}
}

func TestMessageRepository_ChannelsAreDisjoint(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), nil, slog.Default())

	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(diskMessage("general", "alice", "hello general", at)))
	req.NoError(repository.StoreMessage(diskMessage("random", "bob", "hello random", at)))

	general, err := repository.GetMessages("general")
	req.NoError(err)
	req.Len(general, 1)
	req.Equal("hello general", general[0].Content)

	random, err := repository.GetMessages("random")
	req.NoError(err)
	req.Len(random, 1)
	req.Equal("hello random", random[0].Content)
}

func TestMessageRepository_UnknownChannelIsEmpty(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), nil, slog.Default())

	fetched, err := repository.GetMessages("never-created")
	req.NoError(err)
	req.Empty(fetched)
}

// Two records appended in the same process instant must both survive: the
// UUID suffix disambiguates identical timestamps.
func TestMessageRepository_SameInstantAppendsAreNotLost(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), nil, slog.Default())

	at := time.Now().UTC()
	for i := 0; i < 1000; i++ {
		req.NoError(repository.StoreMessage(diskMessage("burst", "alice", "rapid fire", at)))
	}

	fetched, err := repository.GetMessages("burst")
	req.NoError(err)
	req.Len(fetched, 1000)
}

func TestMessageRepository_HeartbeatTokenNeverReplayed(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), nil, slog.Default())

	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(diskMessage("general", "alice", "hello", at)))
	req.NoError(repository.StoreMessage(diskMessage("general", "alice", domain.HeartbeatToken, at.Add(time.Second))))
	req.NoError(repository.StoreMessage(diskMessage("general", "bob", "world", at.Add(2*time.Second))))

	fetched, err := repository.GetMessages("general")
	req.NoError(err)
	req.Len(fetched, 2)
	for _, dm := range fetched {
		req.NotEqual(domain.HeartbeatToken, dm.Content)
	}
}

func TestMessageRepository_SearchScopedToChannel(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), newTestIndex(t), slog.Default())

	at := time.Now().UTC()
	req.NoError(repository.StoreMessage(diskMessage("general", "alice", "the deploy is broken", at)))
	req.NoError(repository.StoreMessage(diskMessage("general", "bob", "lunch anyone", at.Add(time.Second))))
	req.NoError(repository.StoreMessage(diskMessage("ops", "clara", "deploy went fine", at.Add(2*time.Second))))

	hits, err := repository.SearchMessages(context.Background(), "general", "deploy", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("alice", hits[0].Username)
	req.Equal("the deploy is broken", hits[0].Content)
}

func TestMessageRepository_SystemRecordsNotIndexed(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(newTestDB(t), newTestIndex(t), slog.Default())

	notice := diskMessage("general", "alice", "alice joined the chat", time.Now().UTC())
	notice.System = true
	req.NoError(repository.StoreMessage(notice))

	hits, err := repository.SearchMessages(context.Background(), "general", "joined", 10)
	req.NoError(err)
	req.Empty(hits)

	// The record still replays through history.
	fetched, err := repository.GetMessages("general")
	req.NoError(err)
	req.Len(fetched, 1)
	req.True(fetched[0].System)
}
