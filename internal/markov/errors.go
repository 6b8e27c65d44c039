package markov

import "errors"

var (
	// ErrEmptyModel means the chain has no first-words to start from.
	ErrEmptyModel = errors.New("markov: empty model")
	// ErrBrokenChain means a reached token has no successor entry. A chain
	// built by Build never produces it.
	ErrBrokenChain = errors.New("markov: broken chain")
)
