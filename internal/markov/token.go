// Package markov builds first-order Markov chains from a user's message
// history and samples new messages from them.
//
// The pipeline is Tokenize -> Build -> Generator.Generate. Each stage is pure
// and operates on values owned by the caller, so concurrent requests need no
// coordination as long as each builds its own Chain.
package markov

import "fmt"

// Kind classifies a Token.
type Kind uint8

const (
	KindWord Kind = iota + 1
	KindTerminator
	KindBoundary
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindTerminator:
		return "terminator"
	case KindBoundary:
		return "boundary"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Token is one generation unit. Tokens are comparable and used as chain keys.
type Token struct {
	Kind Kind
	Text string
}

// Boundary marks the end of a sentence or message.
var Boundary = Token{Kind: KindBoundary}

// Word returns a word token.
func Word(s string) Token { return Token{Kind: KindWord, Text: s} }

// Terminator returns a punctuation token. s is one of ".", "?", "!", ",".
func Terminator(s string) Token { return Token{Kind: KindTerminator, Text: s} }

func (t Token) IsBoundary() bool { return t.Kind == KindBoundary }

// EndsSentence reports whether t is a terminator that closes a sentence.
// A comma is a terminator but does not end a sentence.
func (t Token) EndsSentence() bool {
	return t.Kind == KindTerminator && t.Text != ","
}

func (t Token) String() string {
	switch t.Kind {
	case KindWord:
		return fmt.Sprintf("Word(%q)", t.Text)
	case KindTerminator:
		return fmt.Sprintf("Terminator(%q)", t.Text)
	case KindBoundary:
		return "Boundary"
	default:
		return fmt.Sprintf("Token(%s, %q)", t.Kind, t.Text)
	}
}

// TokenizedMessage is the token sequence of one raw message. It always ends
// with a Boundary.
type TokenizedMessage []Token

// Degenerate reports whether the message holds nothing but its trailing
// boundary. Degenerate messages contribute nothing to a chain.
func (m TokenizedMessage) Degenerate() bool {
	return len(m) <= 1
}
