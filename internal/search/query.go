package search

import (
	"strings"
	"unicode"
)

// Query is a search term prepared for local matching against posting text.
type Query struct {
	Original   string
	Normalized string
	// Groups holds one entry per word; a posting matches a group when it
	// contains any of the group's alternatives.
	Groups [][]string
}

func NormalizeQuery(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	input = strings.ToLower(input)

	b := strings.Builder{}
	b.Grow(len(input))
	lastWasSpace := false

	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '+' || r == '#' {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if unicode.IsSpace(r) || r == '-' || r == '/' || r == ',' {
			if b.Len() == 0 || lastWasSpace {
				continue
			}
			b.WriteByte(' ')
			lastWasSpace = true
			continue
		}
		// drop all other characters
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

func ProcessQuery(input string) Query {
	q := Query{Original: input, Normalized: NormalizeQuery(input)}
	words := strings.Fields(q.Normalized)
	q.Groups = make([][]string, 0, len(words))
	for _, w := range words {
		q.Groups = append(q.Groups, Alternatives(w))
	}
	return q
}

// Empty reports whether the query matches everything.
func (q Query) Empty() bool { return len(q.Groups) == 0 }

// Matches reports whether text satisfies every word group of the query.
// Alternatives of three characters or fewer must match a whole word so that
// "go" does not match "google".
func (q Query) Matches(text string) bool {
	if q.Empty() {
		return true
	}
	hay := strings.ToLower(text)
	var words map[string]struct{}
	for _, group := range q.Groups {
		found := false
		for _, alt := range group {
			if len(alt) > 3 || strings.Contains(alt, " ") {
				if strings.Contains(hay, alt) {
					found = true
					break
				}
				continue
			}
			if words == nil {
				words = wordSet(hay)
			}
			if _, ok := words[alt]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func wordSet(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r) || r == '+' || r == '#')
	}) {
		out[w] = struct{}{}
	}
	return out
}
