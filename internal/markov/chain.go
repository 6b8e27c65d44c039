package markov

import "slices"

// Chain is a first-order transition table. Successor lists and the
// first-word list keep duplicates, so a uniform pick over them is weighted by
// observed frequency.
//
// A Chain is immutable once built.
type Chain struct {
	successors map[Token][]Token
	firstWords []Token
}

// Build folds tokenized messages into a Chain. Each message is walked on its
// own: the first token of a message is never recorded as the successor of a
// token from an earlier message.
func Build(messages []TokenizedMessage) *Chain {
	c := &Chain{successors: make(map[Token][]Token)}
	for _, msg := range messages {
		if msg.Degenerate() {
			continue
		}
		c.firstWords = append(c.firstWords, msg[0])
		for i := 1; i < len(msg); i++ {
			prev := msg[i-1]
			c.successors[prev] = append(c.successors[prev], msg[i])
		}
	}
	return c
}

// BuildFromTexts tokenizes each raw text and builds a Chain from the result.
func BuildFromTexts(texts []string) *Chain {
	messages := make([]TokenizedMessage, len(texts))
	for i, text := range texts {
		messages[i] = Tokenize(text)
	}
	return Build(messages)
}

// FirstWords returns a copy of the sentence-starting tokens, one per
// non-degenerate message, in input order.
func (c *Chain) FirstWords() []Token {
	return slices.Clone(c.firstWords)
}

// Successors returns a copy of the tokens observed after t. ok is false when
// t never appeared as a non-final token.
func (c *Chain) Successors(t Token) (next []Token, ok bool) {
	next, ok = c.successors[t]
	return slices.Clone(next), ok
}

// Len returns the number of distinct tokens with at least one successor.
func (c *Chain) Len() int { return len(c.successors) }

// Empty reports whether the chain has nothing to start a sentence from.
func (c *Chain) Empty() bool { return len(c.firstWords) == 0 }

func (c *Chain) firstWord(src Source) Token {
	return c.firstWords[src.IntN(len(c.firstWords))]
}

func (c *Chain) next(t Token, src Source) (Token, bool) {
	succ, ok := c.successors[t]
	if !ok || len(succ) == 0 {
		return Token{}, false
	}
	return succ[src.IntN(len(succ))], true
}
