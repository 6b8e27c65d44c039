package domain

import "time"

// InboundMessage is one chat message as seen by a channel.
type InboundMessage struct {
	Channel   string
	ChatID    int64
	MessageID int64
	Sender    User
	Chat      Entity // the conversation: a Group, or the User for private chats
	Content   string
	Timestamp time.Time
}

type OutboundMessage struct {
	Channel string
	ChatID  int64
	Content string
	ReplyTo int64 // optional: source message id to reply to
}

// ArchivedMessage is a persisted chat message. It is never modified after
// creation.
type ArchivedMessage struct {
	ID              int64     `json:"id"`
	SenderID        int64     `json:"sender_id"`
	ChatID          int64     `json:"chat_id"`
	Text            string    `json:"text"`
	SentAt          time.Time `json:"sent_at"`
	SourceMessageID int64     `json:"source_message_id"`
}

// SenderStats is the number of archived messages one user has in a chat.
type SenderStats struct {
	User     User `json:"user"`
	Messages int  `json:"messages"`
}
