package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "CorrectHorse7Staple!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	match, err = ComparePassword("WrongPassword1!", hash)
	req.NoError(err)
	req.False(match)
}

func TestComparePassword_MalformedHash(t *testing.T) {
	req := require.New(t)
	_, err := ComparePassword("whatever", "not-an-encoded-hash")
	req.Error(err)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"alice42", "ComplexPass123!"}, false},
		{"Username too short", RegisterRequest{"al", "ComplexPass123!"}, true},
		{"Username with spaces", RegisterRequest{"a lice", "ComplexPass123!"}, true},
		{"Password too short", RegisterRequest{"alice42", "Short1!"}, true},
		{"Missing digit", RegisterRequest{"alice42", "NoDigitPassword!"}, true},
		{"Missing special char", RegisterRequest{"alice42", "NoSpecialChar123"}, true},
		{"Missing uppercase", RegisterRequest{"alice42", "nouppercase12345!"}, true},
		{"Password too long (edge case)", RegisterRequest{"alice42", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)

	token, err := issuer.Generate("user-1", "alice")
	req.NoError(err)
	req.NotEmpty(token)

	claims, err := issuer.Validate(token)
	req.NoError(err)
	req.Equal("user-1", claims.UserID)
	req.Equal("alice", claims.Username)
}

func TestTokenValidation_WrongSecret(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("secret-a", time.Hour)
	other := NewTokenIssuer("secret-b", time.Hour)

	token, err := issuer.Generate("user-1", "alice")
	req.NoError(err)

	_, err = other.Validate(token)
	req.Error(err)
}

func TestTokenValidation_Expired(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.Generate("user-1", "alice")
	req.NoError(err)

	_, err = issuer.Validate(token)
	req.Error(err)
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
