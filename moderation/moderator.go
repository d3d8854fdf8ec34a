// Package moderation masks forbidden words in chat content before it is
// persisted or broadcast. Matching runs on a normalized view of the text so
// leet speak and punctuation padding cannot defeat the word list.
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	maskRune    rune
	log         *slog.Logger
	hasPatterns bool
}

// textMapping links each rune of the normalized text back to its position
// in the original string so masking preserves spacing and punctuation.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton from a word list.
// An empty list yields a pass-through moderator.
func NewModerator(words []string, maskRune rune, log *slog.Logger) (Moderator, error) {
	if len(words) == 0 {
		return Moderator{maskRune: maskRune, log: log}, nil
	}

	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if norm := normalizeRunes([]rune(w)); len(norm) > 0 {
			patterns = append(patterns, norm)
		}
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, maskRune: maskRune, log: log, hasPatterns: true}, nil
}

// Censor replaces every occurrence of a forbidden word with mask runes and
// returns the masked text along with the matched normalized words.
func (m *Moderator) Censor(original string) (string, []string) {
	if !m.hasPatterns {
		return original, nil
	}

	mapping := normalize(original)
	if len(mapping.normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var found []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapping.origIdx) {
			continue
		}
		found = append(found, string(span.Word))

		// Mask the original span, including any noise runes inside it.
		origStart := mapping.origIdx[start]
		origEnd := mapping.origIdx[end-1] + 1
		for i := origStart; i < origEnd; i++ {
			origRunes[i] = m.maskRune
		}
	}

	if len(found) > 0 {
		m.log.Debug("Censored message content", "matches", len(found))
	}
	return string(origRunes), found
}

func normalize(input string) textMapping {
	origRunes := []rune(input)
	mapping := textMapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(clean))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet speak substitutions back to letters.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	case '7':
		return 't'
	default:
		return r
	}
}

// isNoise identifies runes ignored during pattern matching.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
