package transfers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"raceday/internal/notifications"
	"raceday/internal/participants"
	"raceday/internal/shared/domain"
	"raceday/internal/waitlist"
	"raceday/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubDispatcher records dispatched messages instead of delivering them
type stubDispatcher struct {
	mu       sync.Mutex
	messages []*notifications.Message
}

func (d *stubDispatcher) Dispatch(ctx context.Context, msg *notifications.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return nil
}

func (d *stubDispatcher) Deliver(ctx context.Context, msg *notifications.Message) error {
	return d.Dispatch(ctx, msg)
}

func (d *stubDispatcher) SetPurgeFunc(fn notifications.PurgeFunc) {}
func (d *stubDispatcher) Close() error                            { return nil }

func (d *stubDispatcher) countByKind(kind notifications.Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, msg := range d.messages {
		if msg.Kind == kind {
			n++
		}
	}
	return n
}

// waitForKind polls for an async dispatch to land
func waitForKind(t *testing.T, d *stubDispatcher, kind notifications.Kind, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.countByKind(kind) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d %s messages, have %d", want, kind, d.countByKind(kind))
}

type testEnv struct {
	svc        Service
	parts      participants.Repository
	queue      waitlist.Service
	dispatcher *stubDispatcher
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	// A second pooled connection to :memory: would open a separate empty
	// database, so pin the pool to one connection like production does.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&SlotTransfer{}, &participants.Participant{}, &waitlist.WaitlistEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	log := logger.New()
	participantRepo := participants.NewRepository(db)
	waitlistService := waitlist.NewService(waitlist.NewRepository(db), nil, log)
	dispatcher := &stubDispatcher{}
	svc := NewService(db, NewRepository(db), participantRepo, waitlistService, dispatcher, log)

	return &testEnv{
		svc:        svc,
		parts:      participantRepo,
		queue:      waitlistService,
		dispatcher: dispatcher,
	}
}

func seedParticipant(t *testing.T, repo participants.Repository, userID int64) *participants.Participant {
	t.Helper()
	p := &participants.Participant{
		UserID:        userID,
		Role:          domain.RoleRunner,
		UserName:      "Owner",
		PaymentStatus: participants.PaymentStatusPaid,
		Category:      "10K",
		Cluster:       "A",
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("failed to seed participant: %v", err)
	}
	return p
}

func TestCreateTransfer(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	seedParticipant(t, env.parts, 1)

	transfer, err := env.svc.CreateTransfer(ctx, 1)
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	if transfer.Status != StatusPending {
		t.Errorf("expected pending, got %s", transfer.Status)
	}
	if !strings.HasPrefix(transfer.ReferralCode, "RCD-") {
		t.Errorf("unexpected referral code format: %s", transfer.ReferralCode)
	}

	// One active transfer per owner
	if _, err := env.svc.CreateTransfer(ctx, 1); !errors.Is(err, domain.ErrDuplicateActiveTransfer) {
		t.Fatalf("expected ErrDuplicateActiveTransfer, got %v", err)
	}
}

func TestCreateTransfer_RequiresSlot(t *testing.T) {
	env := setupTestEnv(t)

	if _, err := env.svc.CreateTransfer(context.Background(), 42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-participant, got %v", err)
	}
}

func TestConsumeReferral(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	seedParticipant(t, env.parts, 1)

	transfer, err := env.svc.CreateTransfer(ctx, 1)
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}

	// Owner cannot consume their own code
	if _, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 1); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for self-consume, got %v", err)
	}

	// A slot holder cannot receive a second slot
	seedParticipant(t, env.parts, 2)
	if _, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 2); !errors.Is(err, domain.ErrDuplicateActive) {
		t.Fatalf("expected ErrDuplicateActive for slot holder, got %v", err)
	}

	consumed, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 3)
	if err != nil {
		t.Fatalf("ConsumeReferral failed: %v", err)
	}
	if consumed.Status != StatusAwaitingApproval {
		t.Errorf("expected awaiting_approval, got %s", consumed.Status)
	}
	if consumed.NewUserID == nil || *consumed.NewUserID != 3 {
		t.Errorf("expected new user 3 bound, got %v", consumed.NewUserID)
	}

	// The owner hears about the consumed code
	waitForKind(t, env.dispatcher, notifications.KindTransferConsumed, 1)

	// Codes are single-use
	if _, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 4); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for spent code, got %v", err)
	}

	if _, err := env.svc.ConsumeReferral(ctx, "RCD-00000000-XXXXXX", 4); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown code, got %v", err)
	}
}

func TestConsumeReferral_QueuedRecipient(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	seedParticipant(t, env.parts, 1)

	transfer, err := env.svc.CreateTransfer(ctx, 1)
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}

	// A user waiting for a slot cannot also receive one by referral
	if _, err := env.queue.Enqueue(ctx, 5, domain.RoleRunner, "Queued", "", ""); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 5); !errors.Is(err, domain.ErrDuplicateActive) {
		t.Fatalf("expected ErrDuplicateActive for queued recipient, got %v", err)
	}
}

func TestApprove_SwapsSlot(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	original := seedParticipant(t, env.parts, 1)

	transfer, err := env.svc.CreateTransfer(ctx, 1)
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	if _, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 2); err != nil {
		t.Fatalf("ConsumeReferral failed: %v", err)
	}

	result, err := env.svc.Approve(ctx, transfer.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if result.Status != StatusApproved {
		t.Errorf("expected approved, got %s", result.Status)
	}

	// Original slot is gone
	if _, err := env.parts.GetByUserID(ctx, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected original participant removed, got %v", err)
	}

	// Replacement carries role, category, cluster and payment status
	replacement, err := env.parts.GetByUserID(ctx, 2)
	if err != nil {
		t.Fatalf("replacement lookup failed: %v", err)
	}
	if replacement.Role != original.Role || replacement.Category != original.Category ||
		replacement.Cluster != original.Cluster || replacement.PaymentStatus != original.PaymentStatus {
		t.Errorf("replacement did not inherit slot attributes: %+v", replacement)
	}

	// Both parties hear about the outcome
	waitForKind(t, env.dispatcher, notifications.KindTransferResolved, 1)
	waitForKind(t, env.dispatcher, notifications.KindAdmitted, 1)

	// Resolved transfers stay resolved
	if _, err := env.svc.Approve(ctx, transfer.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on double approve, got %v", err)
	}
}

func TestApprove_RecipientJoinedQueue(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	seedParticipant(t, env.parts, 1)

	transfer, err := env.svc.CreateTransfer(ctx, 1)
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	if _, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 2); err != nil {
		t.Fatalf("ConsumeReferral failed: %v", err)
	}

	// The recipient joins the waitlist between consume and approval
	if _, err := env.queue.Enqueue(ctx, 2, domain.RoleRunner, "Recipient", "", ""); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if _, err := env.svc.Approve(ctx, transfer.ID); !errors.Is(err, domain.ErrDuplicateActive) {
		t.Fatalf("expected ErrDuplicateActive, got %v", err)
	}

	// The swap did not happen: original keeps the slot, transfer stays open
	if _, err := env.parts.GetByUserID(ctx, 1); err != nil {
		t.Fatalf("original participant should keep slot: %v", err)
	}
	got, err := env.svc.GetByID(ctx, transfer.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != StatusAwaitingApproval {
		t.Errorf("expected transfer still awaiting_approval, got %s", got.Status)
	}
}

func TestApprove_RequiresConsumedCode(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	seedParticipant(t, env.parts, 1)

	transfer, err := env.svc.CreateTransfer(ctx, 1)
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}

	if _, err := env.svc.Approve(ctx, transfer.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for pending transfer, got %v", err)
	}
}

func TestReject_KeepsOriginalSlot(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	seedParticipant(t, env.parts, 1)

	transfer, err := env.svc.CreateTransfer(ctx, 1)
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	if _, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 2); err != nil {
		t.Fatalf("ConsumeReferral failed: %v", err)
	}

	result, err := env.svc.Reject(ctx, transfer.ID)
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if result.Status != StatusRejected {
		t.Errorf("expected rejected, got %s", result.Status)
	}

	// Original keeps the slot, the code stays burned
	if _, err := env.parts.GetByUserID(ctx, 1); err != nil {
		t.Fatalf("original participant should keep slot: %v", err)
	}
	if _, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 3); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected burned code after reject, got %v", err)
	}

	waitForKind(t, env.dispatcher, notifications.KindTransferResolved, 1)

	// Owner can open a new transfer after rejection
	if _, err := env.svc.CreateTransfer(ctx, 1); err != nil {
		t.Fatalf("expected new transfer after reject, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	seedParticipant(t, env.parts, 1)

	transfer, err := env.svc.CreateTransfer(ctx, 1)
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}

	// Only the owner can cancel
	if err := env.svc.Cancel(ctx, transfer.ID, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong owner, got %v", err)
	}

	if err := env.svc.Cancel(ctx, transfer.ID, 1); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// A consumed transfer cannot be cancelled
	transfer, err = env.svc.CreateTransfer(ctx, 1)
	if err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}
	if _, err := env.svc.ConsumeReferral(ctx, transfer.ReferralCode, 2); err != nil {
		t.Fatalf("ConsumeReferral failed: %v", err)
	}
	if err := env.svc.Cancel(ctx, transfer.ID, 1); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for consumed transfer, got %v", err)
	}
}

func TestCancelActiveByUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	seedParticipant(t, env.parts, 1)

	if _, err := env.svc.CreateTransfer(ctx, 1); err != nil {
		t.Fatalf("CreateTransfer failed: %v", err)
	}

	cancelled, err := env.svc.CancelActiveByUser(ctx, 1)
	if err != nil {
		t.Fatalf("CancelActiveByUser failed: %v", err)
	}
	if cancelled != 1 {
		t.Errorf("expected 1 cancelled, got %d", cancelled)
	}

	cancelled, err = env.svc.CancelActiveByUser(ctx, 1)
	if err != nil {
		t.Fatalf("CancelActiveByUser failed: %v", err)
	}
	if cancelled != 0 {
		t.Errorf("expected 0 cancelled on repeat, got %d", cancelled)
	}
}
