package capacity

import (
	"context"
	"fmt"

	"raceday/internal/shared/domain"

	"gorm.io/gorm"
)

// ParticipantCounter provides live occupancy counts (to avoid import cycles)
type ParticipantCounter interface {
	CountByRole(ctx context.Context, role domain.Role) (int, error)
}

// Service is the capacity ledger: the authoritative max-vs-occupied
// accounting per role. It owns no locks; callers serialize capacity-affecting
// operations per role.
type Service interface {
	Limit(ctx context.Context, role domain.Role) (int, error)
	Occupied(ctx context.Context, role domain.Role) (int, error)
	Available(ctx context.Context, role domain.Role) (int, error)
	SetLimit(ctx context.Context, role domain.Role, newMax int) (*LimitChange, error)

	// WithTx returns a ledger bound to the given transaction handle
	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo    Repository
	counter ParticipantCounter

	// counterTx rebinds the counter inside a transaction
	counterTx func(tx *gorm.DB) ParticipantCounter
}

// NewService creates a new capacity ledger
func NewService(repo Repository, counter ParticipantCounter, counterTx func(tx *gorm.DB) ParticipantCounter) Service {
	return &service{
		repo:      repo,
		counter:   counter,
		counterTx: counterTx,
	}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	counter := s.counter
	if s.counterTx != nil {
		counter = s.counterTx(tx)
	}
	return &service{
		repo:      s.repo.WithTx(tx),
		counter:   counter,
		counterTx: s.counterTx,
	}
}

// Limit returns the configured capacity for a role
func (s *service) Limit(ctx context.Context, role domain.Role) (int, error) {
	return s.repo.GetInt(ctx, role.SettingsKey())
}

// Occupied returns the number of admitted participants for a role
func (s *service) Occupied(ctx context.Context, role domain.Role) (int, error) {
	return s.counter.CountByRole(ctx, role)
}

// Available returns limit minus occupancy, clamped at zero
func (s *service) Available(ctx context.Context, role domain.Role) (int, error) {
	limit, err := s.Limit(ctx, role)
	if err != nil {
		return 0, err
	}
	occupied, err := s.Occupied(ctx, role)
	if err != nil {
		return 0, err
	}

	available := limit - occupied
	if available < 0 {
		available = 0
	}
	return available, nil
}

// SetLimit changes a role's capacity. Lowering below current occupancy is
// rejected; raising reports the freed delta so the caller can trigger
// waitlist notification.
func (s *service) SetLimit(ctx context.Context, role domain.Role, newMax int) (*LimitChange, error) {
	if newMax < 0 {
		return nil, fmt.Errorf("%w: %s=%d", domain.ErrSettingsInvalid, role.SettingsKey(), newMax)
	}

	oldMax, err := s.Limit(ctx, role)
	if err != nil {
		return nil, err
	}

	occupied, err := s.Occupied(ctx, role)
	if err != nil {
		return nil, err
	}
	if newMax < occupied {
		return nil, fmt.Errorf("%w: occupied=%d requested=%d", domain.ErrLimitBelowOccupancy, occupied, newMax)
	}

	if err := s.repo.SetInt(ctx, role.SettingsKey(), newMax); err != nil {
		return nil, err
	}

	freed := newMax - oldMax
	if freed < 0 {
		freed = 0
	}

	return &LimitChange{
		Role:     role,
		OldLimit: oldMax,
		NewLimit: newMax,
		Freed:    freed,
	}, nil
}
