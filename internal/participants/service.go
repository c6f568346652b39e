package participants

import (
	"context"
	"fmt"

	"raceday/internal/shared/constants"
	"raceday/internal/shared/domain"
	"raceday/pkg/cache"
	"raceday/pkg/logger"
)

// Service exposes participant reads and the payment-status field. Admission
// and removal stay with the admission controller.
type Service interface {
	Get(ctx context.Context, userID int64) (*Participant, error)
	ListByRole(ctx context.Context, role domain.Role) ([]Participant, error)
	SetPaymentStatus(ctx context.Context, userID int64, status PaymentStatus) error
}

type service struct {
	repo   Repository
	cache  cache.Service
	logger *logger.Logger
}

// NewService creates a new participants service
func NewService(repo Repository, cacheService cache.Service, log *logger.Logger) Service {
	return &service{
		repo:   repo,
		cache:  cacheService,
		logger: log,
	}
}

func (s *service) Get(ctx context.Context, userID int64) (*Participant, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func (s *service) ListByRole(ctx context.Context, role domain.Role) ([]Participant, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	if s.cache != nil {
		cacheKey := constants.BuildParticipantsListKey(string(role))
		var cached []Participant
		err := s.cache.GetOrSet(ctx, cacheKey, constants.TTL_PARTICIPANTS_LIST, func() (interface{}, error) {
			return s.repo.ListByRole(ctx, role)
		}, &cached)
		if err == nil {
			return cached, nil
		}
		s.logger.Warn("participants cache lookup failed, falling back to database", "error", err)
	}

	return s.repo.ListByRole(ctx, role)
}

func (s *service) SetPaymentStatus(ctx context.Context, userID int64, status PaymentStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid payment status %q", status)
	}

	if err := s.repo.UpdatePaymentStatus(ctx, userID, status); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.DeletePattern(ctx, constants.PATTERN_INVALIDATE_PARTICIPANTS); err != nil {
			s.logger.Warn("failed to invalidate participant caches", "error", err)
		}
	}
	return nil
}
