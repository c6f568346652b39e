package notifications

import (
	"context"
	"time"

	"raceday/pkg/logger"
)

// PurgeFunc is invoked when delivery to a user comes back blocked. Wired to
// the admission service after construction to avoid an import cycle.
type PurgeFunc func(ctx context.Context, userID int64) error

// Dispatcher routes outbound messages to their transport. In direct mode
// delivery happens in-process; in kafka mode messages are published and a
// consumer worker pool delivers them through the same path.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg *Message) error
	// Deliver is the terminal delivery path shared by both modes
	Deliver(ctx context.Context, msg *Message) error
	SetPurgeFunc(fn PurgeFunc)
	Close() error
}

type dispatcher struct {
	notifier Notifier
	repo     Repository
	producer Producer // nil in direct mode
	purge    PurgeFunc
	logger   *logger.Logger
}

// NewDispatcher creates a direct-mode dispatcher
func NewDispatcher(notifier Notifier, repo Repository, log *logger.Logger) Dispatcher {
	return &dispatcher{
		notifier: notifier,
		repo:     repo,
		logger:   log,
	}
}

// NewKafkaDispatcher creates a dispatcher that publishes to Kafka instead of
// delivering in-process
func NewKafkaDispatcher(producer Producer, notifier Notifier, repo Repository, log *logger.Logger) Dispatcher {
	return &dispatcher{
		notifier: notifier,
		repo:     repo,
		producer: producer,
		logger:   log,
	}
}

func (d *dispatcher) SetPurgeFunc(fn PurgeFunc) {
	d.purge = fn
}

func (d *dispatcher) Dispatch(ctx context.Context, msg *Message) error {
	if d.producer != nil {
		return d.producer.Publish(ctx, msg)
	}
	return d.Deliver(ctx, msg)
}

// Deliver sends the message, persists the audit record and feeds the
// blocked outcome back into the purge hook. Called directly in direct mode
// and from consumer workers in kafka mode.
func (d *dispatcher) Deliver(ctx context.Context, msg *Message) error {
	outcome, sendErr := d.notifier.Send(ctx, msg)

	record := &NotificationRecord{
		ID:      msg.ID,
		UserID:  msg.UserID,
		Kind:    msg.Kind,
		Text:    msg.Text,
		Outcome: outcome,
		SentAt:  time.Now(),
	}
	if sendErr != nil {
		errStr := sendErr.Error()
		record.Error = &errStr
	}

	if err := d.repo.Create(ctx, record); err != nil {
		d.logger.Error("failed to persist notification record", "error", err, "user_id", msg.UserID)
	}

	d.logger.LogNotificationOutcome(ctx, msg.UserID, string(msg.Kind), string(outcome))

	if outcome == OutcomeBlocked && d.purge != nil {
		if err := d.purge(ctx, msg.UserID); err != nil {
			d.logger.Error("purge after blocked delivery failed", "error", err, "user_id", msg.UserID)
		}
	}

	if outcome == OutcomeFailed {
		return sendErr
	}
	return nil
}

func (d *dispatcher) Close() error {
	if d.producer != nil {
		return d.producer.Close()
	}
	return nil
}
