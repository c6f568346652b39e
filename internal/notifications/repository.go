package notifications

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repository persists the notification audit trail
type Repository interface {
	Create(ctx context.Context, record *NotificationRecord) error
	ListRecent(ctx context.Context, limit int) ([]NotificationRecord, error)
	CountByOutcome(ctx context.Context) (map[Outcome]int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new notification record repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, record *NotificationRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}
	return nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []NotificationRecord
	err := r.db.WithContext(ctx).
		Order("sent_at DESC").
		Limit(limit).
		Find(&records).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list notification records: %w", err)
	}
	return records, nil
}

func (r *repository) CountByOutcome(ctx context.Context) (map[Outcome]int, error) {
	type outcomeCount struct {
		Outcome Outcome
		Count   int
	}

	var counts []outcomeCount
	err := r.db.WithContext(ctx).
		Model(&NotificationRecord{}).
		Select("outcome, COUNT(*) as count").
		Group("outcome").
		Scan(&counts).Error

	if err != nil {
		return nil, fmt.Errorf("failed to count notification records: %w", err)
	}

	result := make(map[Outcome]int, len(counts))
	for _, oc := range counts {
		result[oc.Outcome] = oc.Count
	}
	return result, nil
}
