package capacity

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"raceday/internal/shared/domain"

	"gorm.io/gorm"
)

// Repository interface defines the contract for the settings store
type Repository interface {
	GetInt(ctx context.Context, key string) (int, error)
	SetInt(ctx context.Context, key string, value int) error
	WithTx(tx *gorm.DB) Repository
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

// GetInt reads a non-negative integer setting. A missing or malformed value
// is a configuration error, never a silent default.
func (r *repository) GetInt(ctx context.Context, key string) (int, error) {
	var s Setting
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&s).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %s", domain.ErrSettingsMissing, key)
		}
		return 0, fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	value, convErr := strconv.Atoi(s.Value)
	if convErr != nil || value < 0 {
		return 0, fmt.Errorf("%w: %s=%q", domain.ErrSettingsInvalid, key, s.Value)
	}
	return value, nil
}

// SetInt upserts an integer setting
func (r *repository) SetInt(ctx context.Context, key string, value int) error {
	if value < 0 {
		return fmt.Errorf("%w: %s=%d", domain.ErrSettingsInvalid, key, value)
	}

	s := Setting{Key: key, Value: strconv.Itoa(value)}
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		Assign(map[string]interface{}{"value": s.Value}).
		FirstOrCreate(&s).Error

	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}
