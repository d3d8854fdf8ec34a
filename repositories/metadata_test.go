package repositories

import (
	"context"
	"path/filepath"
	"testing"

	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

func newTestMetadataStore(t *testing.T) *MetadataStore {
	t.Helper()
	store, err := OpenMetadataStore(filepath.Join(t.TempDir(), "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMetadataStore_CreateAndGetUser(t *testing.T) {
	req := require.New(t)
	store := newTestMetadataStore(t)
	ctx := context.Background()

	id, err := store.CreateUser(ctx, "alice", "$argon2id$fake-hash")
	req.NoError(err)
	req.NotEmpty(id)

	user, err := store.GetUserByUsername(ctx, "alice")
	req.NoError(err)
	req.Equal(id, user.ID)
	req.Equal("alice", user.Username)
	req.Equal("$argon2id$fake-hash", user.PasswordHash)
	req.False(user.CreatedAt.IsZero())
}

func TestMetadataStore_DuplicateUsername(t *testing.T) {
	req := require.New(t)
	store := newTestMetadataStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, "alice", "hash-a")
	req.NoError(err)

	_, err = store.CreateUser(ctx, "alice", "hash-b")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestMetadataStore_UnknownUser(t *testing.T) {
	req := require.New(t)
	store := newTestMetadataStore(t)

	_, err := store.GetUserByUsername(context.Background(), "nobody")
	req.Error(err)
}

func TestMetadataStore_Channels(t *testing.T) {
	req := require.New(t)
	store := newTestMetadataStore(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, "alice", "hash")
	req.NoError(err)

	// Given no channel exists
	exists, err := store.ChannelExists(ctx, "general")
	req.NoError(err)
	req.False(exists)

	// When alice creates it
	req.NoError(store.CreateChannel(ctx, "general", "alice"))

	// Then it is visible and owned
	exists, err = store.ChannelExists(ctx, "general")
	req.NoError(err)
	req.True(exists)

	channels, err := store.ListChannels(ctx)
	req.NoError(err)
	req.Len(channels, 1)
	req.Equal("general", channels[0].Name)
	req.Equal("alice", channels[0].Owner)

	// And creating it again fails
	req.ErrorIs(store.CreateChannel(ctx, "general", "alice"), errors.ErrChannelAlreadyExists)
}
