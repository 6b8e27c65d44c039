package markov

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// terminatorPattern matches the punctuation that becomes its own unit.
var terminatorPattern = regexp.MustCompile(`[.?!,]`)

// Tokenize splits raw message text into generation units. Every ".", "?" and
// "!" is followed by a Boundary, and the result always ends with one extra
// Boundary. Empty input yields a message holding only the Boundary.
func Tokenize(raw string) TokenizedMessage {
	units := lo.FlatMap(strings.Fields(raw), func(chunk string, _ int) []string {
		return splitAroundTerminators(chunk)
	})
	units = lo.Filter(units, func(u string, _ int) bool { return u != "" })

	tokens := lo.FlatMap(units, func(u string, _ int) []Token {
		if !terminatorPattern.MatchString(u) {
			return []Token{Word(u)}
		}
		t := Terminator(u)
		if t.EndsSentence() {
			return []Token{t, Boundary}
		}
		return []Token{t}
	})
	return append(TokenizedMessage(tokens), Boundary)
}

// splitAroundTerminators splits s on terminator characters, keeping each
// terminator as its own element. Empty pieces are kept; the caller drops them.
func splitAroundTerminators(s string) []string {
	matches := terminatorPattern.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return []string{s}
	}
	parts := make([]string, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		parts = append(parts, s[last:m[0]], s[m[0]:m[1]])
		last = m[1]
	}
	return append(parts, s[last:])
}
