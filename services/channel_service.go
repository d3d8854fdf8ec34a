package services

import (
	"context"
	"strings"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IChannelService interface {
	Create(ctx context.Context, name, owner string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]domain.Channel, error)
}

type ChannelService struct {
	channelRepository repositories.IChannelRepository
}

func NewChannelService(repo repositories.IChannelRepository) IChannelService {
	return &ChannelService{channelRepository: repo}
}

// Create validates the channel name before persisting it. Names are lowercase
// slugs: the storage key scheme uses ':' as a separator, so it can never
// appear in a name.
func (s *ChannelService) Create(ctx context.Context, name, owner string) error {
	if !isValidChannelName(name) {
		return errors.ErrInvalidChannelName
	}
	return s.channelRepository.CreateChannel(ctx, name, owner)
}

func (s *ChannelService) Exists(ctx context.Context, name string) (bool, error) {
	return s.channelRepository.ChannelExists(ctx, name)
}

func (s *ChannelService) List(ctx context.Context) ([]domain.Channel, error) {
	return s.channelRepository.ListChannels(ctx)
}

func isValidChannelName(name string) bool {
	if len(name) < 1 || len(name) > 64 {
		return false
	}
	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
