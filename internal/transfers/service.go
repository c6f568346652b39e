package transfers

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"raceday/internal/notifications"
	"raceday/internal/participants"
	"raceday/internal/shared/domain"
	"raceday/internal/waitlist"
	"raceday/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoleLocker serializes capacity-affecting work against the per-role mutex
// owned by the admission module. Declared here to avoid import cycles.
type RoleLocker interface {
	WithRoleLock(role domain.Role, fn func() error) error
}

// QueueChecker reports whether a user still holds an active waitlist entry.
// A recipient with a queue position cannot take over a slot.
type QueueChecker interface {
	ActiveEntry(ctx context.Context, userID int64) (*waitlist.WaitlistEntry, error)
}

// Service interface defines the slot transfer operations
type Service interface {
	CreateTransfer(ctx context.Context, originalUserID int64) (*SlotTransfer, error)
	ConsumeReferral(ctx context.Context, code string, newUserID int64) (*SlotTransfer, error)
	Approve(ctx context.Context, transferID uuid.UUID) (*ApprovalResult, error)
	Reject(ctx context.Context, transferID uuid.UUID) (*ApprovalResult, error)
	Cancel(ctx context.Context, transferID uuid.UUID, byUserID int64) error
	CancelActiveByUser(ctx context.Context, userID int64) (int, error)

	GetByID(ctx context.Context, transferID uuid.UUID) (*SlotTransfer, error)
	ActiveTransfer(ctx context.Context, originalUserID int64) (*SlotTransfer, error)
	List(ctx context.Context, status Status) ([]SlotTransfer, error)

	// SetRoleLocker wires the admission module's per-role serialization in
	// after construction.
	SetRoleLocker(locker RoleLocker)
}

type service struct {
	db              *gorm.DB
	repo            Repository
	participantRepo participants.Repository
	queue           QueueChecker
	dispatcher      notifications.Dispatcher
	locker          RoleLocker
	logger          *logger.Logger
}

// NewService creates a new slot transfer service
func NewService(db *gorm.DB, repo Repository, participantRepo participants.Repository, queue QueueChecker, dispatcher notifications.Dispatcher, log *logger.Logger) Service {
	return &service{
		db:              db,
		repo:            repo,
		participantRepo: participantRepo,
		queue:           queue,
		dispatcher:      dispatcher,
		logger:          log,
	}
}

func (s *service) SetRoleLocker(locker RoleLocker) {
	s.locker = locker
}

func (s *service) withRoleLock(role domain.Role, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	return s.locker.WithRoleLock(role, fn)
}

// CreateTransfer opens a transfer for an occupied slot and issues a one-time
// referral code. Only one active transfer per owner.
func (s *service) CreateTransfer(ctx context.Context, originalUserID int64) (*SlotTransfer, error) {
	if _, err := s.participantRepo.GetByUserID(ctx, originalUserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("user %d holds no slot: %w", originalUserID, domain.ErrNotFound)
		}
		return nil, err
	}

	existing, err := s.repo.GetActiveByOriginalUser(ctx, originalUserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateActiveTransfer
	}

	code, err := s.generateReferralCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate referral code: %w", err)
	}

	transfer := &SlotTransfer{
		ID:             uuid.New(),
		OriginalUserID: originalUserID,
		ReferralCode:   code,
		Status:         StatusPending,
		RequestDate:    time.Now(),
	}

	if err := s.repo.Create(ctx, transfer); err != nil {
		return nil, err
	}
	return transfer, nil
}

// ConsumeReferral binds a new user to a pending transfer. The code is
// single-use: once consumed the transfer leaves the pending state for good.
func (s *service) ConsumeReferral(ctx context.Context, code string, newUserID int64) (*SlotTransfer, error) {
	transfer, err := s.repo.GetByReferralCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if transfer.Status != StatusPending {
		return nil, fmt.Errorf("referral code already used: %w", domain.ErrInvalidTransition)
	}
	if transfer.OriginalUserID == newUserID {
		return nil, fmt.Errorf("cannot consume own referral code: %w", domain.ErrInvalidTransition)
	}

	if err := s.checkRecipientFree(ctx, newUserID); err != nil {
		return nil, err
	}

	transfer.NewUserID = &newUserID
	transfer.Status = StatusAwaitingApproval
	if err := s.repo.Update(ctx, transfer); err != nil {
		return nil, err
	}

	s.dispatch(notifications.NewMessage(transfer.OriginalUserID, notifications.KindTransferConsumed,
		notifications.TransferConsumedText(transfer.ReferralCode)))
	return transfer, nil
}

// checkRecipientFree rejects a recipient who already holds a slot or an
// active waitlist entry.
func (s *service) checkRecipientFree(ctx context.Context, userID int64) error {
	if _, err := s.participantRepo.GetByUserID(ctx, userID); err == nil {
		return domain.ErrDuplicateActive
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	if s.queue != nil {
		if _, err := s.queue.ActiveEntry(ctx, userID); err == nil {
			return domain.ErrDuplicateActive
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Approve hands the slot over: one transaction deletes the original
// participant and inserts the new one carrying role, category and cluster.
// Occupancy nets to zero, so no capacity check is needed, but the swap is
// serialized against removals and promotions touching the same role.
func (s *service) Approve(ctx context.Context, transferID uuid.UUID) (*ApprovalResult, error) {
	transfer, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !transfer.Status.CanTransitionTo(StatusApproved) {
		return nil, fmt.Errorf("transfer %s is %s: %w", transferID, transfer.Status, domain.ErrInvalidTransition)
	}
	if transfer.NewUserID == nil {
		return nil, fmt.Errorf("transfer %s has no bound recipient: %w", transferID, domain.ErrInvalidTransition)
	}

	original, err := s.participantRepo.GetByUserID(ctx, transfer.OriginalUserID)
	if err != nil {
		return nil, fmt.Errorf("original participant lookup failed: %w", err)
	}

	newUserID := *transfer.NewUserID
	err = s.withRoleLock(original.Role, func() error {
		// Re-check under the lock: the recipient may have registered or
		// joined the waitlist since the code was consumed.
		if err := s.checkRecipientFree(ctx, newUserID); err != nil {
			return err
		}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txParticipants := s.participantRepo.WithTx(tx)
			txTransfers := s.repo.WithTx(tx)

			if err := txParticipants.Delete(ctx, original.UserID); err != nil {
				return err
			}

			replacement := &participants.Participant{
				UserID:        newUserID,
				Role:          original.Role,
				PaymentStatus: original.PaymentStatus,
				Category:      original.Category,
				Cluster:       original.Cluster,
				RegisteredAt:  time.Now(),
			}
			if err := txParticipants.Create(ctx, replacement); err != nil {
				return err
			}

			now := time.Now()
			transfer.Status = StatusApproved
			transfer.ResolvedDate = &now
			return txTransfers.Update(ctx, transfer)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to approve transfer: %w", err)
	}

	s.logger.LogTransferResolved(ctx, transfer.ID.String(), string(StatusApproved), transfer.OriginalUserID, newUserID)
	s.dispatch(notifications.NewMessage(transfer.OriginalUserID, notifications.KindTransferResolved,
		notifications.TransferApprovedText()))
	s.dispatch(notifications.NewMessage(newUserID, notifications.KindAdmitted,
		notifications.AdmittedText(string(original.Role))))
	return &ApprovalResult{
		TransferID:     transfer.ID,
		Status:         StatusApproved,
		OriginalUserID: transfer.OriginalUserID,
		NewUserID:      newUserID,
	}, nil
}

// Reject declines an awaiting_approval transfer. The original user keeps
// the slot and the referral code stays burned.
func (s *service) Reject(ctx context.Context, transferID uuid.UUID) (*ApprovalResult, error) {
	transfer, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !transfer.Status.CanTransitionTo(StatusRejected) {
		return nil, fmt.Errorf("transfer %s is %s: %w", transferID, transfer.Status, domain.ErrInvalidTransition)
	}

	now := time.Now()
	transfer.Status = StatusRejected
	transfer.ResolvedDate = &now
	if err := s.repo.Update(ctx, transfer); err != nil {
		return nil, err
	}

	newUserID := int64(0)
	if transfer.NewUserID != nil {
		newUserID = *transfer.NewUserID
	}
	s.logger.LogTransferResolved(ctx, transfer.ID.String(), string(StatusRejected), transfer.OriginalUserID, newUserID)
	s.dispatch(notifications.NewMessage(transfer.OriginalUserID, notifications.KindTransferResolved,
		notifications.TransferRejectedText()))
	return &ApprovalResult{
		TransferID:     transfer.ID,
		Status:         StatusRejected,
		OriginalUserID: transfer.OriginalUserID,
		NewUserID:      newUserID,
	}, nil
}

// Cancel withdraws a transfer. Only the owner can cancel, and only while no
// recipient has consumed the code.
func (s *service) Cancel(ctx context.Context, transferID uuid.UUID, byUserID int64) error {
	transfer, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		return err
	}
	if transfer.OriginalUserID != byUserID {
		return fmt.Errorf("transfer %s is not owned by user %d: %w", transferID, byUserID, domain.ErrNotFound)
	}
	if !transfer.Status.CanTransitionTo(StatusCancelled) {
		return fmt.Errorf("transfer %s is %s: %w", transferID, transfer.Status, domain.ErrInvalidTransition)
	}

	now := time.Now()
	transfer.Status = StatusCancelled
	transfer.ResolvedDate = &now
	return s.repo.Update(ctx, transfer)
}

// CancelActiveByUser is the purge hook: any transfer the user still owns is
// force-cancelled when delivery to them turns out blocked.
func (s *service) CancelActiveByUser(ctx context.Context, userID int64) (int, error) {
	return s.repo.CancelActiveByUser(ctx, userID)
}

func (s *service) GetByID(ctx context.Context, transferID uuid.UUID) (*SlotTransfer, error) {
	return s.repo.GetByID(ctx, transferID)
}

func (s *service) ActiveTransfer(ctx context.Context, originalUserID int64) (*SlotTransfer, error) {
	return s.repo.GetActiveByOriginalUser(ctx, originalUserID)
}

func (s *service) List(ctx context.Context, status Status) ([]SlotTransfer, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	return s.repo.ListByStatus(ctx, status)
}

// dispatch hands the message off without blocking the transfer path. A
// blocked outcome would re-enter the role lock through the purge hook, so
// delivery never runs on the caller's goroutine.
func (s *service) dispatch(msg *notifications.Message) {
	if s.dispatcher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
			s.logger.Error("notification dispatch failed", "error", err, "user_id", msg.UserID, "kind", string(msg.Kind))
		}
	}()
}

// generateReferralCode builds a unique code like RCD-20260831-KQZMXA.
// Collisions are close to impossible but the unique index is authoritative,
// so a few retries cover the race.
func (s *service) generateReferralCode(ctx context.Context) (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const attempts = 5

	for attempt := 0; attempt < attempts; attempt++ {
		timestamp := time.Now().Format("20060102")
		randomPart := make([]byte, 6)
		for i := range randomPart {
			num, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
			if err != nil {
				return "", err
			}
			randomPart[i] = letters[num.Int64()]
		}

		code := fmt.Sprintf("RCD-%s-%s", timestamp, string(randomPart))
		_, err := s.repo.GetByReferralCode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted referral code attempts")
}
