package parrot

import "errors"

var (
	// ErrUserNotFound means no user has the requested username.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoHistory means the user has no archived messages in the chat.
	ErrNoHistory = errors.New("no archived messages")
)
