package notifications

import "context"

// Notifier delivers a message to a user. Implementations classify the
// transport error themselves: blocked is terminal for the recipient, failed
// is transient.
type Notifier interface {
	Send(ctx context.Context, msg *Message) (Outcome, error)
}

// NoopNotifier swallows every message. Used when Telegram delivery is
// disabled in config.
type NoopNotifier struct{}

func (NoopNotifier) Send(ctx context.Context, msg *Message) (Outcome, error) {
	return OutcomeSent, nil
}
