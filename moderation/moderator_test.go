package moderation

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

const maskRune = '*'

// The dictionary uses distinctive words to avoid partial collisions
// (e.g. "he" inside "The").
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, maskRune, slog.Default())
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
			words:    []string{"badger"},
		},
		{
			name:     "Multiple occurrences",
			input:    "badger badger badger",
			expected: "****** ****** ******",
			words:    []string{"badger", "badger", "badger"},
		},
		{
			name:     "Leet speak substitutions",
			input:    "watch out for the b4dg3r",
			expected: "watch out for the ******",
			words:    []string{"badger"},
		},
		{
			name:     "Uppercase with internal punctuation",
			input:    "S-N-A-K-E spotted",
			expected: "********* spotted",
			words:    []string{"snake"},
		},
		{
			name:     "Clean message untouched",
			input:    "nothing to see here",
			expected: "nothing to see here",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			censored, found := mod.Censor(tt.input)
			req.Equal(tt.expected, censored)
			req.Equal(tt.words, found)
		})
	}
}

func TestModerator_EmptyDictionary(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator(nil, maskRune, slog.Default())
	req.NoError(err)

	censored, found := mod.Censor("anything goes in here")
	req.Equal("anything goes in here", censored)
	req.Empty(found)
}
