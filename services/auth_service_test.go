package services

import (
	"context"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("test-secret", 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	svc := NewAuthService(mockRepo, newTestIssuer())
	ctx := context.Background()

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		username := "alice"
		password := "ComplexPass123!"
		expectedUserID := "user-uuid"

		// Expect CreateUser to be called with a hashed password (not the plain one)
		mockRepo.EXPECT().
			CreateUser(ctx, username, gomock.Not(password)).
			Return(expectedUserID, nil).
			Times(1)

		token, err := svc.Register(ctx, username, password)

		req.NoError(err)
		req.NotEmpty(token)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)
		username := "alice"
		password := "simplepassword" // Long enough but fails complexity

		// Repository should NEVER be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		token, err := svc.Register(ctx, username, password)

		req.Error(err)
		req.ErrorIs(err, errors.ErrInvalidPassword)
		req.Empty(token)
	})

	t.Run("should fail when username has forbidden characters", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register(ctx, "bad:name", "ComplexPass123!")

		req.Error(err)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)
		username := "duplicate"
		password := "ComplexPass123!"

		mockRepo.EXPECT().
			CreateUser(ctx, username, gomock.Any()).
			Return("", errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register(ctx, username, password)

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockIUserRepository(ctrl)
	issuer := newTestIssuer()
	svc := NewAuthService(mockRepo, issuer)
	ctx := context.Background()

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		username := "alice"
		password := "Secret123456!"

		hashedPassword, _ := auth.HashPassword(password)
		storedUser := domain.User{
			ID:           "uuid-123",
			Username:     username,
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().
			GetUserByUsername(ctx, username).
			Return(storedUser, nil).
			Times(1)

		token, err := svc.Login(ctx, username, password)

		req.NoError(err)
		req.NotEmpty(token)

		claims, err := issuer.Validate(string(token))
		req.NoError(err)
		req.Equal(storedUser.ID, claims.UserID)
		req.Equal(username, claims.Username)
	})

	t.Run("should return invalid credentials when password does not match", func(t *testing.T) {
		req := require.New(t)
		username := "alice"

		hashedPassword, _ := auth.HashPassword("CorrectPassword123!")
		storedUser := domain.User{
			Username:     username,
			PasswordHash: hashedPassword,
		}

		mockRepo.EXPECT().
			GetUserByUsername(ctx, username).
			Return(storedUser, nil).
			Times(1)

		_, err := svc.Login(ctx, username, "WrongPassword123!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should return invalid credentials for an unknown user", func(t *testing.T) {
		req := require.New(t)

		mockRepo.EXPECT().
			GetUserByUsername(ctx, "ghost").
			Return(domain.User{}, errors.ErrInvalidCredentials).
			Times(1)

		_, err := svc.Login(ctx, "ghost", "Whatever123456!")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})
}
