// Package moderation masks disallowed words in chat text.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"go.uber.org/zap"
)

// Moderator matches a fixed word list with an Aho-Corasick automaton. Matching
// ignores case, punctuation and common leet substitutions, and only whole
// words are masked, so "class" does not trip on "ass".
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	logger      *zap.Logger
}

type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the automaton. An empty word list gives a moderator that
// never masks anything.
func NewModerator(words []string, replacement rune, logger *zap.Logger) (*Moderator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	patterns := make([][]rune, 0, len(words))
	for _, w := range words {
		if p := normalizeRunes([]rune(w)); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}
	m := &Moderator{replacement: replacement, logger: logger}
	if len(patterns) == 0 {
		return m, nil
	}
	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	m.matcher = machine
	logger.Info("chat moderation enabled", zap.Int("words", len(patterns)))
	return m, nil
}

// Censor returns text with every matched word replaced rune for rune, and the
// normalized words that matched.
func (m *Moderator) Censor(text string) (string, []string) {
	if m == nil || m.matcher == nil {
		return text, nil
	}
	mapping := normalize(text)
	if len(mapping.normalized) == 0 {
		return text, nil
	}
	terms := m.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(terms) == 0 {
		return text, nil
	}

	orig := []rune(text)
	var matched []string
	for _, term := range terms {
		start := term.Pos
		end := start + len(term.Word)
		if start < 0 || end > len(mapping.origIdx) {
			continue
		}
		origStart := mapping.origIdx[start]
		origEnd := mapping.origIdx[end-1] + 1
		if !wordBoundary(orig, origStart, origEnd) {
			continue
		}
		for i := origStart; i < origEnd; i++ {
			orig[i] = m.replacement
		}
		matched = append(matched, string(term.Word))
	}
	if len(matched) == 0 {
		return text, nil
	}
	return string(orig), matched
}

func wordBoundary(orig []rune, start, end int) bool {
	if start > 0 && isWordRune(orig[start-1]) {
		return false
	}
	if end < len(orig) && isWordRune(orig[end]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func normalize(input string) textMapping {
	orig := []rune(input)
	out := textMapping{
		normalized: make([]rune, 0, len(orig)),
		origIdx:    make([]int, 0, len(orig)),
	}
	for i, r := range orig {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out.normalized = append(out.normalized, unicode.ToLower(clean))
		out.origIdx = append(out.origIdx, i)
	}
	return out
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

// simplifyRune undoes common leet substitutions.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
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

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
