package services

import (
	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/repositories"
	"context"
	"fmt"
)

type IAuthService interface {
	Register(ctx context.Context, username, password string) (Token, error)
	Login(ctx context.Context, username, password string) (Token, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	issuer         *auth.TokenIssuer
}

type Token string

func NewAuthService(repo repositories.IUserRepository, issuer *auth.TokenIssuer) IAuthService {
	return &AuthService{userRepository: repo, issuer: issuer}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (Token, error) {
	valReq := auth.RegisterRequest{
		Username: username,
		Password: password,
	}

	// 1. Validate business rules (username format, password complexity)
	// We check this before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", err
	}

	// 2. Hash the password using Argon2id
	// Done in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the user with the generated hash
	userID, err := s.userRepository.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		return "", err // Will propagate ErrUserAlreadyExists if username is taken
	}

	// 4. Generate the initial session token
	token, err := s.issuer.Generate(userID, username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}

	return Token(token), nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (Token, error) {
	// 1. Retrieve user by username from storage
	user, err := s.userRepository.GetUserByUsername(ctx, username)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	// 2. Compare the provided password with the stored hash
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	// 3. Issue the JWT token
	token, err := s.issuer.Generate(user.ID, user.Username)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}

	return Token(token), nil
}
