package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raceday/internal/shared/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository interface defines the contract for waitlist data operations
type Repository interface {
	Create(ctx context.Context, entry *WaitlistEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*WaitlistEntry, error)
	GetActiveByUser(ctx context.Context, userID int64) (*WaitlistEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// Queue selection
	NextWaiting(ctx context.Context, role domain.Role, n int) ([]WaitlistEntry, error)
	MarkNotified(ctx context.Context, ids []uuid.UUID, notifiedAt, expireAt time.Time) error
	RevertToWaiting(ctx context.Context, ids []uuid.UUID) error
	ExpiredNotified(ctx context.Context, role domain.Role, now time.Time, limit int) ([]WaitlistEntry, error)

	// Listings
	ActiveByRole(ctx context.Context, role domain.Role) ([]WaitlistEntry, error)
	CountActiveByRole(ctx context.Context, role domain.Role) (int, error)
	ListByRole(ctx context.Context, role domain.Role, status Status) ([]WaitlistEntry, error)
	EarliestActiveJoinDate(ctx context.Context, role domain.Role) (time.Time, bool, error)
	CountByStatus(ctx context.Context) ([]RoleStats, int, error)

	// WithTx returns a repository bound to the given transaction handle
	WithTx(tx *gorm.DB) Repository
}

// repository implements the Repository interface
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new waitlist repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// Create inserts a new waitlist entry
func (r *repository) Create(ctx context.Context, entry *WaitlistEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.JoinDate.IsZero() {
		entry.JoinDate = time.Now()
	}
	if entry.Status == "" {
		entry.Status = StatusWaiting
	}

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

// GetByID fetches an entry by id
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*WaitlistEntry, error) {
	var entry WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

// GetActiveByUser fetches the user's waiting or notified entry, if any
func (r *repository) GetActiveByUser(ctx context.Context, userID int64) (*WaitlistEntry, error) {
	var entry WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []Status{StatusWaiting, StatusNotified}).
		First(&entry).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active waitlist entry: %w", err)
	}
	return &entry, nil
}

// Delete removes a waitlist entry
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&WaitlistEntry{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete waitlist entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// NextWaiting returns the n earliest waiting entries for a role.
// Ties on join_date break by insertion order.
func (r *repository) NextWaiting(ctx context.Context, role domain.Role, n int) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("role = ? AND status = ?", role, StatusWaiting).
		Order("join_date ASC, created_at ASC").
		Limit(n).
		Find(&entries).Error

	if err != nil {
		return nil, fmt.Errorf("failed to select waiting entries: %w", err)
	}
	return entries, nil
}

// MarkNotified moves entries into the notified state with a confirmation window
func (r *repository) MarkNotified(ctx context.Context, ids []uuid.UUID, notifiedAt, expireAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":        StatusNotified,
			"notified_date": notifiedAt,
			"expire_date":   expireAt,
			"updated_at":    time.Now(),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to mark entries notified: %w", err)
	}
	return nil
}

// RevertToWaiting puts expired offers back in the queue. JoinDate is left
// untouched so the entry keeps its original position.
func (r *repository) RevertToWaiting(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":        StatusWaiting,
			"notified_date": nil,
			"expire_date":   nil,
			"updated_at":    time.Now(),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to revert entries to waiting: %w", err)
	}
	return nil
}

// ExpiredNotified returns a role's notified entries whose confirmation window
// has passed
func (r *repository) ExpiredNotified(ctx context.Context, role domain.Role, now time.Time, limit int) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("role = ? AND status = ? AND expire_date IS NOT NULL AND expire_date < ?", role, StatusNotified, now).
		Limit(limit).
		Find(&entries).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get expired entries: %w", err)
	}
	return entries, nil
}

// ActiveByRole lists waiting and notified entries for a role in queue order
func (r *repository) ActiveByRole(ctx context.Context, role domain.Role) ([]WaitlistEntry, error) {
	var entries []WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("role = ? AND status IN ?", role, []Status{StatusWaiting, StatusNotified}).
		Order("join_date ASC, created_at ASC").
		Find(&entries).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list active entries: %w", err)
	}
	return entries, nil
}

// CountActiveByRole counts waiting and notified entries for a role
func (r *repository) CountActiveByRole(ctx context.Context, role domain.Role) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Where("role = ? AND status IN ?", role, []Status{StatusWaiting, StatusNotified}).
		Count(&count).Error

	if err != nil {
		return 0, fmt.Errorf("failed to count active entries: %w", err)
	}
	return int(count), nil
}

// ListByRole lists entries for a role with an optional status filter
func (r *repository) ListByRole(ctx context.Context, role domain.Role, status Status) ([]WaitlistEntry, error) {
	query := r.db.WithContext(ctx).Where("role = ?", role)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var entries []WaitlistEntry
	if err := query.Order("join_date ASC, created_at ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list waitlist entries: %w", err)
	}
	return entries, nil
}

// EarliestActiveJoinDate returns the join date at the front of the queue.
// The second return is false when the queue is empty.
func (r *repository) EarliestActiveJoinDate(ctx context.Context, role domain.Role) (time.Time, bool, error) {
	var entry WaitlistEntry
	err := r.db.WithContext(ctx).
		Where("role = ? AND status IN ?", role, []Status{StatusWaiting, StatusNotified}).
		Order("join_date ASC, created_at ASC").
		First(&entry).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to get queue front: %w", err)
	}
	return entry.JoinDate, true, nil
}

// CountByStatus aggregates active entry counts per role
func (r *repository) CountByStatus(ctx context.Context) ([]RoleStats, int, error) {
	type statusCount struct {
		Role   domain.Role
		Status Status
		Count  int
	}

	var counts []statusCount
	err := r.db.WithContext(ctx).
		Model(&WaitlistEntry{}).
		Select("role, status, COUNT(*) as count").
		Where("status IN ?", []Status{StatusWaiting, StatusNotified}).
		Group("role").Group("status").
		Scan(&counts).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to count waitlist entries: %w", err)
	}

	byRole := make(map[domain.Role]*RoleStats)
	total := 0
	for _, sc := range counts {
		rs, ok := byRole[sc.Role]
		if !ok {
			rs = &RoleStats{Role: sc.Role}
			byRole[sc.Role] = rs
		}
		switch sc.Status {
		case StatusWaiting:
			rs.Waiting = sc.Count
		case StatusNotified:
			rs.Notified = sc.Count
		}
		total += sc.Count
	}

	stats := make([]RoleStats, 0, len(byRole))
	for _, role := range domain.Roles() {
		if rs, ok := byRole[role]; ok {
			stats = append(stats, *rs)
		}
	}
	return stats, total, nil
}
