package transfers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raceday/internal/shared/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines the contract for slot transfer data operations
type Repository interface {
	Create(ctx context.Context, transfer *SlotTransfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*SlotTransfer, error)
	GetByReferralCode(ctx context.Context, code string) (*SlotTransfer, error)
	GetActiveByOriginalUser(ctx context.Context, userID int64) (*SlotTransfer, error)
	Update(ctx context.Context, transfer *SlotTransfer) error
	ListByStatus(ctx context.Context, status Status) ([]SlotTransfer, error)
	CancelActiveByUser(ctx context.Context, userID int64) (int, error)
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new slot transfer repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// Create inserts a new slot transfer
func (r *repository) Create(ctx context.Context, transfer *SlotTransfer) error {
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	if transfer.RequestDate.IsZero() {
		transfer.RequestDate = time.Now()
	}
	if transfer.Status == "" {
		transfer.Status = StatusPending
	}

	if err := r.db.WithContext(ctx).Create(transfer).Error; err != nil {
		return fmt.Errorf("failed to create slot transfer: %w", err)
	}
	return nil
}

// GetByID fetches a transfer by id
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*SlotTransfer, error) {
	var transfer SlotTransfer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&transfer).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get slot transfer: %w", err)
	}
	return &transfer, nil
}

// GetByReferralCode fetches a transfer by its referral code
func (r *repository) GetByReferralCode(ctx context.Context, code string) (*SlotTransfer, error) {
	var transfer SlotTransfer
	err := r.db.WithContext(ctx).
		Where("referral_code = ?", code).
		First(&transfer).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get slot transfer by code: %w", err)
	}
	return &transfer, nil
}

// GetActiveByOriginalUser fetches the user's pending or awaiting_approval transfer
func (r *repository) GetActiveByOriginalUser(ctx context.Context, userID int64) (*SlotTransfer, error) {
	var transfer SlotTransfer
	err := r.db.WithContext(ctx).
		Where("original_user_id = ? AND status IN ?", userID, []Status{StatusPending, StatusAwaitingApproval}).
		First(&transfer).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active transfer: %w", err)
	}
	return &transfer, nil
}

// Update persists transfer field changes
func (r *repository) Update(ctx context.Context, transfer *SlotTransfer) error {
	result := r.db.WithContext(ctx).Save(transfer)
	if result.Error != nil {
		return fmt.Errorf("failed to update slot transfer: %w", result.Error)
	}
	return nil
}

// ListByStatus lists transfers with an optional status filter
func (r *repository) ListByStatus(ctx context.Context, status Status) ([]SlotTransfer, error) {
	query := r.db.WithContext(ctx).Model(&SlotTransfer{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var transfers []SlotTransfer
	if err := query.Order("request_date DESC").Find(&transfers).Error; err != nil {
		return nil, fmt.Errorf("failed to list slot transfers: %w", err)
	}
	return transfers, nil
}

// CancelActiveByUser cancels any active transfer owned by the user and
// returns how many were cancelled. Used by the purge path.
func (r *repository) CancelActiveByUser(ctx context.Context, userID int64) (int, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&SlotTransfer{}).
		Where("original_user_id = ? AND status IN ?", userID, []Status{StatusPending, StatusAwaitingApproval}).
		Updates(map[string]interface{}{
			"status":        StatusCancelled,
			"resolved_date": now,
			"updated_at":    now,
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to cancel active transfers: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
