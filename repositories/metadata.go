//go:generate go run go.uber.org/mock/mockgen -source=metadata.go -destination=../mocks/mock_metadata_store.go -package=mocks
package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, username, passwordHash string) (string, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

type IChannelRepository interface {
	CreateChannel(ctx context.Context, name, owner string) error
	ChannelExists(ctx context.Context, name string) (bool, error)
	ListChannels(ctx context.Context) ([]domain.Channel, error)
}

// MetadataStore is the relational side of the system: user accounts and
// channel ownership live in SQLite, while the message/presence log lives in
// badger. The messaging core only ever reads channel metadata.
type MetadataStore struct {
	sqlDB *sql.DB
}

const metadataSchema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS channels (
    name TEXT PRIMARY KEY,
    owner TEXT NOT NULL REFERENCES users(username),
    created_at INTEGER NOT NULL
);
`

// OpenMetadataStore opens (or creates) the SQLite store and applies the
// schema.
func OpenMetadataStore(path string) (*MetadataStore, error) {
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(metadataSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &MetadataStore{sqlDB: sqlDB}, nil
}

func (s *MetadataStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// CreateUser inserts a new account and returns the generated user ID.
// A taken username maps to ErrUserAlreadyExists.
func (s *MetadataStore) CreateUser(ctx context.Context, username, passwordHash string) (string, error) {
	id := uuid.NewString()
	_, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		id, username, passwordHash, toMillis(time.Now()))
	if isUniqueViolation(err) {
		return "", errors.ErrUserAlreadyExists
	}
	if err != nil {
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *MetadataStore) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var user domain.User
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = ?",
		username).Scan(&user.ID, &user.Username, &user.PasswordHash, &createdAt)
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return user, nil
}

// CreateChannel registers a channel with its owner. A taken name maps to
// ErrChannelAlreadyExists.
func (s *MetadataStore) CreateChannel(ctx context.Context, name, owner string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO channels (name, owner, created_at) VALUES (?, ?, ?)",
		name, owner, toMillis(time.Now()))
	if isUniqueViolation(err) {
		return errors.ErrChannelAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

// ChannelExists is the read-only check the websocket boundary performs before
// any session is created.
func (s *MetadataStore) ChannelExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT 1 FROM channels WHERE name = ?", name).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select channel: %w", err)
	}
	return true, nil
}

func (s *MetadataStore) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT name, owner, created_at FROM channels ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("select channels: %w", err)
	}
	defer rows.Close()

	channels := make([]domain.Channel, 0)
	for rows.Next() {
		var channel domain.Channel
		var createdAt int64
		if err := rows.Scan(&channel.Name, &channel.Owner, &createdAt); err != nil {
			return nil, err
		}
		channel.CreatedAt = fromMillis(createdAt)
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if stderrors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

var (
	_ IUserRepository    = (*MetadataStore)(nil)
	_ IChannelRepository = (*MetadataStore)(nil)
)
