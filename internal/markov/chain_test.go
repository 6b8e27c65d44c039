package markov

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuild_FirstWordsOnePerMessage(t *testing.T) {
	req := require.New(t)

	chain := BuildFromTexts([]string{"I like cats.", "", "I like dogs.", "   ", "You too"})

	req.Equal([]Token{Word("I"), Word("I"), Word("You")}, chain.FirstWords())
	req.False(chain.Empty())
}

func TestBuild_SuccessorsKeepDuplicates(t *testing.T) {
	req := require.New(t)

	chain := BuildFromTexts([]string{"I like cats.", "I like dogs."})

	next, ok := chain.Successors(Word("I"))
	req.True(ok)
	req.Equal([]Token{Word("like"), Word("like")}, next)

	next, ok = chain.Successors(Word("like"))
	req.True(ok)
	req.ElementsMatch([]Token{Word("cats"), Word("dogs")}, next)

	next, ok = chain.Successors(Terminator("."))
	req.True(ok)
	req.Equal([]Token{Boundary, Boundary}, next)

	next, ok = chain.Successors(Boundary)
	req.True(ok)
	req.Equal([]Token{Boundary, Boundary}, next)
}

func TestBuild_MessagesAreWalkedIndependently(t *testing.T) {
	req := require.New(t)

	chain := BuildFromTexts([]string{"alpha", "beta"})

	next, ok := chain.Successors(Boundary)
	req.False(ok, "trailing boundary is always final, got %v", next)

	next, ok = chain.Successors(Word("alpha"))
	req.True(ok)
	req.Equal([]Token{Boundary}, next)

	_, ok = chain.Successors(Word("missing"))
	req.False(ok)
}

func TestBuild_EveryNonFinalTokenIsKey(t *testing.T) {
	req := require.New(t)
	texts := []string{"Hi! Bye.", "Hello, world!", "what?!", "a.b.c", "x y x y"}

	messages := make([]TokenizedMessage, len(texts))
	expected := make(map[Token][]Token)
	for i, text := range texts {
		messages[i] = Tokenize(text)
		for j := 1; j < len(messages[i]); j++ {
			expected[messages[i][j-1]] = append(expected[messages[i][j-1]], messages[i][j])
		}
	}

	chain := Build(messages)

	req.Equal(len(expected), chain.Len())
	for prev, want := range expected {
		got, ok := chain.Successors(prev)
		req.True(ok, "missing key %s", prev)
		req.ElementsMatch(want, got, "successors of %s", prev)
	}
	req.Len(chain.FirstWords(), len(texts))
}

func TestBuild_Empty(t *testing.T) {
	req := require.New(t)

	req.True(Build(nil).Empty())
	req.True(BuildFromTexts([]string{"", " "}).Empty())
}

func TestChain_AccessorsReturnCopies(t *testing.T) {
	req := require.New(t)
	chain := BuildFromTexts([]string{"a b"})

	fw := chain.FirstWords()
	fw[0] = Word("mutated")
	next, _ := chain.Successors(Word("a"))
	next[0] = Word("mutated")

	req.Equal([]Token{Word("a")}, chain.FirstWords())
	got, _ := chain.Successors(Word("a"))
	req.Equal([]Token{Word("b")}, got)
}
