package participants

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raceday/internal/shared/domain"

	"gorm.io/gorm"
)

// Repository interface defines the contract for participant data operations
type Repository interface {
	Create(ctx context.Context, p *Participant) error
	GetByUserID(ctx context.Context, userID int64) (*Participant, error)
	Delete(ctx context.Context, userID int64) error
	CountByRole(ctx context.Context, role domain.Role) (int, error)
	ListByRole(ctx context.Context, role domain.Role) ([]Participant, error)
	// LatestByRole returns the most recently admitted participant for a role.
	// Used by the reconciliation pass.
	LatestByRole(ctx context.Context, role domain.Role) (*Participant, error)
	UpdatePaymentStatus(ctx context.Context, userID int64, status PaymentStatus) error

	// WithTx returns a repository bound to the given transaction handle so
	// multi-step admission operations commit as one unit.
	WithTx(tx *gorm.DB) Repository
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new participant repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// Create inserts a participant row, consuming one capacity slot
func (r *repository) Create(ctx context.Context, p *Participant) error {
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = time.Now()
	}

	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

// GetByUserID fetches a participant by its user id
func (r *repository) GetByUserID(ctx context.Context, userID int64) (*Participant, error) {
	var p Participant
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&p).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

// Delete removes a participant row, freeing one capacity slot
func (r *repository) Delete(ctx context.Context, userID int64) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&Participant{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete participant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByRole returns the occupied slot count for a role
func (r *repository) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&Participant{}).
		Where("role = ?", role).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return int(count), nil
}

// ListByRole lists participants for a role ordered by registration time
func (r *repository) ListByRole(ctx context.Context, role domain.Role) ([]Participant, error) {
	var list []Participant
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("registered_at ASC").
		Find(&list).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return list, nil
}

// LatestByRole returns the newest admission for a role
func (r *repository) LatestByRole(ctx context.Context, role domain.Role) (*Participant, error) {
	var p Participant
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("registered_at DESC").
		First(&p).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest participant: %w", err)
	}
	return &p, nil
}

// UpdatePaymentStatus mutates the payment bookkeeping field
func (r *repository) UpdatePaymentStatus(ctx context.Context, userID int64, status PaymentStatus) error {
	result := r.db.WithContext(ctx).
		Model(&Participant{}).
		Where("user_id = ?", userID).
		Update("payment_status", status)

	if result.Error != nil {
		return fmt.Errorf("failed to update payment status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
