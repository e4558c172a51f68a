package accuracy

import (
	"strings"
	"unicode"
)

// Normalize lower-cases text, turns every rune that is not a word character,
// '@' or '-' into a separator, and returns the remaining words in order.
// Duplicates are kept. Word characters are Unicode letters, numbers and '_'.
func Normalize(text string) []string {
	if text == "" {
		return nil
	}
	lowered := strings.ToLower(text)
	return strings.FieldsFunc(lowered, isSeparator)
}

func isSeparator(r rune) bool {
	return !isTokenRune(r)
}

func isTokenRune(r rune) bool {
	switch {
	case r == '_', r == '@', r == '-':
		return true
	case unicode.IsLetter(r), unicode.IsNumber(r):
		return true
	}
	return false
}

// TokenSet is a deduplicated collection of normalized tokens.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from a token sequence.
func NewTokenSet(tokens []string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Contains reports membership.
func (s TokenSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// Intersect returns the number of tokens present in both sets.
func (s TokenSet) Intersect(other TokenSet) int {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for t := range small {
		if large.Contains(t) {
			n++
		}
	}
	return n
}
