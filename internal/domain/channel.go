package domain

import "context"

// Channel is the interface for user-facing I/O (Telegram, Discord, CLI).
// Start registers Send as the channel's outbound handler on the bus.
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
	Send(ctx context.Context, msg OutboundMessage) error
}
