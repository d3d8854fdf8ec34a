package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/repositories"
	"chat-relay/runtime"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

type IChatService interface {
	History(channel string) ([]repositories.DiskMessage, error)
	Statuses(channel string) ([]domain.UserStatus, error)
	Search(ctx context.Context, channel, terms string, limit int) ([]repositories.DiskMessage, error)
}

// ChatService is the messaging core. It sits between the session transport
// and the stores: every session hands it lifecycle events, and it decides
// what gets persisted and what gets fanned out. Persistence and fanout for
// one record happen under the registry lock, so members observe the log in
// write order.
type ChatService struct {
	registry  *runtime.Registry
	messages  repositories.IMessageRepository
	presence  repositories.IPresenceRepository
	moderator moderation.Moderator
	log       *slog.Logger
}

var _ runtime.Lifecycle = (*ChatService)(nil)

func NewChatService(
	registry *runtime.Registry,
	messages repositories.IMessageRepository,
	presence repositories.IPresenceRepository,
	moderator moderation.Moderator,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		registry:  registry,
		messages:  messages,
		presence:  presence,
		moderator: moderator,
		log:       log,
	}
}

// SessionStarted registers the session for fanout, marks the user online and
// announces the arrival to every member, the newcomer included.
func (c *ChatService) SessionStarted(s *runtime.Session) {
	c.registry.Register(s.Channel, s)

	if err := c.presence.SetStatus(s.Channel, s.Username, true); err != nil {
		c.log.Error("Failed to record online status",
			"channel", s.Channel, "username", s.Username, "error", err)
	}

	c.announce(s.Channel, s.Username, fmt.Sprintf("%s joined the chat", s.Username))
	c.log.Info("Session joined", "channel", s.Channel, "username", s.Username)
}

// TextReceived sanitizes one inbound line, persists it and broadcasts it to
// every channel member including the sender. The sender sees its own message
// only through this echo.
func (c *ChatService) TextReceived(s *runtime.Session, text string) {
	sanitized, foundWords := c.moderator.Censor(text)
	if len(foundWords) > 0 {
		c.log.Info("Censored message",
			"channel", s.Channel, "author", s.Username, "words", foundWords)
	}

	info := whatlanggo.Detect(sanitized)

	record := repositories.DiskMessage{
		ID:       uuid.New(),
		Channel:  s.Channel,
		Username: s.Username,
		Content:  sanitized,
		Lang:     info.Lang.Iso6391(),
		At:       time.Now().UTC(),
	}

	line := fmt.Sprintf("%s: %s", s.Username, sanitized)
	c.registry.Publish(s.Channel, []byte(line), func() error {
		return c.messages.StoreMessage(record)
	})
}

// SessionStopped unregisters the session before announcing the departure, so
// the leaver never receives its own leave notice.
func (c *ChatService) SessionStopped(s *runtime.Session) {
	c.registry.Unregister(s.Channel, s)

	if err := c.presence.SetStatus(s.Channel, s.Username, false); err != nil {
		c.log.Error("Failed to record offline status",
			"channel", s.Channel, "username", s.Username, "error", err)
	}

	c.announce(s.Channel, s.Username, fmt.Sprintf("%s left the chat", s.Username))
	c.log.Info("Session left", "channel", s.Channel, "username", s.Username)
}

// announce persists a system record and broadcasts its line in one publish.
func (c *ChatService) announce(channel, username, line string) {
	record := repositories.DiskMessage{
		ID:       uuid.New(),
		Channel:  channel,
		Username: username,
		Content:  line,
		System:   true,
		At:       time.Now().UTC(),
	}
	c.registry.Publish(channel, []byte(line), func() error {
		return c.messages.StoreMessage(record)
	})
}

func (c *ChatService) History(channel string) ([]repositories.DiskMessage, error) {
	return c.messages.GetMessages(channel)
}

func (c *ChatService) Statuses(channel string) ([]domain.UserStatus, error) {
	return c.presence.ListStatuses(channel)
}

func (c *ChatService) Search(ctx context.Context, channel, terms string, limit int) ([]repositories.DiskMessage, error) {
	return c.messages.SearchMessages(ctx, channel, terms, limit)
}
