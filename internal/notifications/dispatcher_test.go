package notifications

import (
	"context"
	"errors"
	"testing"

	"raceday/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubNotifier returns a fixed outcome
type stubNotifier struct {
	outcome Outcome
	err     error
	sent    []*Message
}

func (n *stubNotifier) Send(ctx context.Context, msg *Message) (Outcome, error) {
	n.sent = append(n.sent, msg)
	return n.outcome, n.err
}

func setupTestRepo(t *testing.T) Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&NotificationRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewRepository(db)
}

func TestDeliver_RecordsOutcome(t *testing.T) {
	repo := setupTestRepo(t)
	notifier := &stubNotifier{outcome: OutcomeSent}
	d := NewDispatcher(notifier, repo, logger.New())

	msg := NewMessage(1, KindAdmitted, AdmittedText("runner"))
	if err := d.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	records, err := repo.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Outcome != OutcomeSent || records[0].UserID != 1 || records[0].Kind != KindAdmitted {
		t.Errorf("unexpected record: %+v", records[0])
	}
}

func TestDeliver_BlockedTriggersPurge(t *testing.T) {
	repo := setupTestRepo(t)
	notifier := &stubNotifier{outcome: OutcomeBlocked, err: errors.New("forbidden: bot was blocked by the user")}
	d := NewDispatcher(notifier, repo, logger.New())

	var purged []int64
	d.SetPurgeFunc(func(ctx context.Context, userID int64) error {
		purged = append(purged, userID)
		return nil
	})

	msg := NewMessage(42, KindSlotOffer, "offer")
	if err := d.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("blocked delivery should not return an error, got %v", err)
	}

	if len(purged) != 1 || purged[0] != 42 {
		t.Errorf("expected user 42 purged, got %v", purged)
	}

	counts, err := repo.CountByOutcome(context.Background())
	if err != nil {
		t.Fatalf("CountByOutcome failed: %v", err)
	}
	if counts[OutcomeBlocked] != 1 {
		t.Errorf("expected 1 blocked record, got %+v", counts)
	}
}

func TestDeliver_FailedReturnsError(t *testing.T) {
	repo := setupTestRepo(t)
	sendErr := errors.New("network down")
	notifier := &stubNotifier{outcome: OutcomeFailed, err: sendErr}
	d := NewDispatcher(notifier, repo, logger.New())

	msg := NewMessage(1, KindAdmitted, "hello")
	if err := d.Deliver(context.Background(), msg); !errors.Is(err, sendErr) {
		t.Fatalf("expected send error surfaced, got %v", err)
	}

	records, err := repo.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(records) != 1 || records[0].Error == nil {
		t.Fatalf("expected failure recorded with error, got %+v", records)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg := NewMessage(7, KindDemoted, DemotedText("runner", 1))
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	decoded, err := MessageFromJSON(data)
	if err != nil {
		t.Fatalf("MessageFromJSON failed: %v", err)
	}
	if decoded.ID != msg.ID || decoded.UserID != msg.UserID || decoded.Kind != msg.Kind {
		t.Errorf("round trip mismatch: %+v vs %+v", decoded, msg)
	}
	if decoded.PartitionKey() != "user-7" {
		t.Errorf("unexpected partition key %s", decoded.PartitionKey())
	}
}
