package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"raceday/internal/shared/constants"
	"raceday/internal/shared/domain"
	"raceday/pkg/cache"
	"raceday/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service interface defines the queue operations other modules build on.
// Confirmation and decline live in the admission module; this package only
// owns entry lifecycle and ordering.
type Service interface {
	Enqueue(ctx context.Context, userID int64, role domain.Role, userName, category, cluster string) (*WaitlistEntry, error)
	// EnqueueAt inserts with an explicit join date; an earlier date than the
	// queue front re-inserts at the front.
	EnqueueAt(ctx context.Context, userID int64, role domain.Role, userName, category, cluster string, joinDate time.Time) (*WaitlistEntry, error)
	ActiveEntry(ctx context.Context, userID int64) (*WaitlistEntry, error)
	Remove(ctx context.Context, id uuid.UUID) error

	// SelectForNotification atomically marks the next n waiting entries as
	// notified and returns them. Marking happens before any message is sent
	// so a crashed dispatch degrades to an expired offer, never a double one.
	SelectForNotification(ctx context.Context, role domain.Role, n int, window time.Duration) ([]WaitlistEntry, error)
	// RevertExpired is scoped to one role so the caller can hold that role's
	// lock for the whole revert-and-reselect cycle.
	RevertExpired(ctx context.Context, role domain.Role, now time.Time, limit int) ([]WaitlistEntry, error)

	Position(ctx context.Context, userID int64) (*PositionResponse, error)
	Entries(ctx context.Context, role domain.Role, status Status) ([]WaitlistEntry, error)
	Stats(ctx context.Context) (*StatsResponse, error)

	// FrontJoinDate reports the join date at the head of the role's queue.
	FrontJoinDate(ctx context.Context, role domain.Role) (time.Time, bool, error)

	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo   Repository
	cache  cache.Service
	logger *logger.Logger
}

// NewService creates a new waitlist service. The cache is optional; pass nil
// when Redis is disabled and reads go straight to the database.
func NewService(repo Repository, cacheService cache.Service, log *logger.Logger) Service {
	return &service{
		repo:   repo,
		cache:  cacheService,
		logger: log,
	}
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{
		repo:   s.repo.WithTx(tx),
		cache:  s.cache,
		logger: s.logger,
	}
}

// Enqueue appends a user to the queue for a role. A user with a waiting or
// notified entry cannot join again, regardless of role.
func (s *service) Enqueue(ctx context.Context, userID int64, role domain.Role, userName, category, cluster string) (*WaitlistEntry, error) {
	return s.EnqueueAt(ctx, userID, role, userName, category, cluster, time.Now())
}

func (s *service) EnqueueAt(ctx context.Context, userID int64, role domain.Role, userName, category, cluster string, joinDate time.Time) (*WaitlistEntry, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	existing, err := s.repo.GetActiveByUser(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing entry: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateActive
	}

	entry := &WaitlistEntry{
		ID:       uuid.New(),
		UserID:   userID,
		Role:     role,
		UserName: userName,
		Category: category,
		Cluster:  cluster,
		Status:   StatusWaiting,
		JoinDate: joinDate,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	position, err := s.repo.CountActiveByRole(ctx, role)
	if err != nil {
		position = 0
	}
	entry.Position = position

	s.invalidateCaches(ctx)
	s.logger.LogEnqueued(ctx, userID, string(role), position)
	return entry, nil
}

// ActiveEntry returns the user's waiting or notified entry
func (s *service) ActiveEntry(ctx context.Context, userID int64) (*WaitlistEntry, error) {
	return s.repo.GetActiveByUser(ctx, userID)
}

// Remove deletes an entry regardless of status
func (s *service) Remove(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCaches(ctx)
	return nil
}

func (s *service) SelectForNotification(ctx context.Context, role domain.Role, n int, window time.Duration) ([]WaitlistEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	entries, err := s.repo.NextWaiting(ctx, role, n)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	now := time.Now()
	expireAt := now.Add(window)
	ids := make([]uuid.UUID, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
	}

	if err := s.repo.MarkNotified(ctx, ids, now, expireAt); err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Status = StatusNotified
		entries[i].NotifiedDate = &now
		entries[i].ExpireDate = &expireAt
	}

	s.invalidateCaches(ctx)
	return entries, nil
}

// RevertExpired returns expired offers to the waiting state and reports which
// entries were reverted. JoinDate is preserved so position is kept.
func (s *service) RevertExpired(ctx context.Context, role domain.Role, now time.Time, limit int) ([]WaitlistEntry, error) {
	expired, err := s.repo.ExpiredNotified(ctx, role, now, limit)
	if err != nil {
		return nil, err
	}
	if len(expired) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(expired))
	for i := range expired {
		ids[i] = expired[i].ID
	}

	if err := s.repo.RevertToWaiting(ctx, ids); err != nil {
		return nil, err
	}

	s.invalidateCaches(ctx)
	return expired, nil
}

// Position computes a user's 1-based position among active entries for their
// role. Results are cached briefly since positions shift on every admission.
func (s *service) Position(ctx context.Context, userID int64) (*PositionResponse, error) {
	if s.cache != nil {
		cacheKey := constants.BuildWaitlistPositionKey(userID)
		var cached PositionResponse
		err := s.cache.GetOrSet(ctx, cacheKey, constants.TTL_WAITLIST_POSITION, func() (interface{}, error) {
			return s.computePosition(ctx, userID)
		}, &cached)
		if err == nil {
			return &cached, nil
		}
		s.logger.Warn("position cache lookup failed, falling back to database", "error", err)
	}

	return s.computePosition(ctx, userID)
}

func (s *service) computePosition(ctx context.Context, userID int64) (*PositionResponse, error) {
	entry, err := s.repo.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	active, err := s.repo.ActiveByRole(ctx, entry.Role)
	if err != nil {
		return nil, err
	}

	position := 0
	for i := range active {
		if active[i].ID == entry.ID {
			position = i + 1
			break
		}
	}

	resp := &PositionResponse{
		Position: position,
		Total:    len(active),
		Status:   entry.Status,
		Role:     entry.Role,
		JoinDate: entry.JoinDate,
	}
	if entry.ExpireDate != nil {
		resp.ExpireDate = entry.ExpireDate
		if remaining := entry.TimeRemaining(time.Now()); remaining != nil {
			formatted := remaining.Round(time.Second).String()
			resp.TimeRemaining = &formatted
		}
	}
	return resp, nil
}

func (s *service) Entries(ctx context.Context, role domain.Role, status Status) ([]WaitlistEntry, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("invalid status %q", status)
	}
	return s.repo.ListByRole(ctx, role, status)
}

func (s *service) Stats(ctx context.Context) (*StatsResponse, error) {
	if s.cache != nil {
		var cached StatsResponse
		err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_WAITLIST_STATS, constants.TTL_WAITLIST_STATS, func() (interface{}, error) {
			return s.computeStats(ctx)
		}, &cached)
		if err == nil {
			return &cached, nil
		}
		s.logger.Warn("stats cache lookup failed, falling back to database", "error", err)
	}

	return s.computeStats(ctx)
}

func (s *service) computeStats(ctx context.Context) (*StatsResponse, error) {
	byRole, total, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsResponse{Roles: byRole, Total: total}, nil
}

func (s *service) FrontJoinDate(ctx context.Context, role domain.Role) (time.Time, bool, error) {
	return s.repo.EarliestActiveJoinDate(ctx, role)
}

func (s *service) invalidateCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, constants.PATTERN_INVALIDATE_WAITLIST); err != nil {
		s.logger.Warn("failed to invalidate waitlist caches", "error", err)
	}
}
