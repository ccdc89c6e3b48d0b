package textsource

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Tokenizer splits content into the units emitted as chunks. Concatenating
// the units must reproduce the input.
type Tokenizer func(string) []string

// Characters splits s into one unit per rune.
func Characters(s string) []string {
	units := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		units = append(units, string(r))
	}
	return units
}

// Words splits s into words, each carrying its trailing whitespace.
// Leading whitespace is attached to the first unit.
func Words(s string) []string {
	var units []string
	start := 0
	inSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if inSpace && !space && i > start && hasNonSpace(s[start:i]) {
			units = append(units, s[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(s) {
		units = append(units, s[start:])
	}
	return units
}

func hasNonSpace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// TokenizerByName resolves a configured tokenizer name. An empty name
// selects Characters.
func TokenizerByName(name string) (Tokenizer, error) {
	switch name {
	case "", "characters":
		return Characters, nil
	case "words":
		return Words, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", name)
	}
}

func tokenizerOrDefault(t Tokenizer) Tokenizer {
	if t == nil {
		return Characters
	}
	return t
}
