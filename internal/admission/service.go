package admission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"raceday/internal/capacity"
	"raceday/internal/notifications"
	"raceday/internal/participants"
	"raceday/internal/shared/domain"
	"raceday/internal/transfers"
	"raceday/internal/waitlist"
	"raceday/pkg/logger"

	"gorm.io/gorm"
)

// Service is the admission controller: the only module that moves users
// between the capacity pool and the waitlist. Every capacity-affecting
// read-modify-write runs under the role's mutex.
type Service interface {
	RegisterOrQueue(ctx context.Context, userID int64, userName string, role domain.Role, category, cluster string) (*RegistrationOutcome, error)
	Confirm(ctx context.Context, userID int64) (*participants.Participant, error)
	Decline(ctx context.Context, userID int64) error
	Leave(ctx context.Context, userID int64) error

	RemoveParticipant(ctx context.Context, userID int64) error
	SetLimit(ctx context.Context, role domain.Role, newMax int) (*capacity.LimitChange, error)
	PromoteUser(ctx context.Context, userID int64) (*AdminActionResult, error)
	DemoteUser(ctx context.Context, userID int64) (*AdminActionResult, error)
	PurgeUser(ctx context.Context, userID int64) error

	Summary(ctx context.Context) ([]RoleSummary, error)

	// SweepExpired implements waitlist.Sweeper
	SweepExpired(ctx context.Context) (int, error)
	// WithRoleLock implements transfers.RoleLocker
	WithRoleLock(role domain.Role, fn func() error) error
}

type service struct {
	db              *gorm.DB
	capacity        capacity.Service
	participantRepo participants.Repository
	waitlist        waitlist.Service
	transfers       transfers.Service
	dispatcher      notifications.Dispatcher
	logger          *logger.Logger

	confirmWindow  time.Duration
	demoteReinsert string
	sweepBatch     int

	locks map[domain.Role]*sync.Mutex
}

// NewService creates the admission controller
func NewService(
	db *gorm.DB,
	capacityService capacity.Service,
	participantRepo participants.Repository,
	waitlistService waitlist.Service,
	transferService transfers.Service,
	dispatcher notifications.Dispatcher,
	confirmWindow time.Duration,
	demoteReinsert string,
	log *logger.Logger,
) Service {
	locks := make(map[domain.Role]*sync.Mutex, len(domain.Roles()))
	for _, role := range domain.Roles() {
		locks[role] = &sync.Mutex{}
	}

	return &service{
		db:              db,
		capacity:        capacityService,
		participantRepo: participantRepo,
		waitlist:        waitlistService,
		transfers:       transferService,
		dispatcher:      dispatcher,
		logger:          log,
		confirmWindow:   confirmWindow,
		demoteReinsert:  demoteReinsert,
		sweepBatch:      100,
		locks:           locks,
	}
}

// WithRoleLock serializes fn against every other capacity-affecting
// operation on the role.
func (s *service) WithRoleLock(role domain.Role, fn func() error) error {
	mu, ok := s.locks[role]
	if !ok {
		return fmt.Errorf("unknown role %q", role)
	}
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// RegisterOrQueue admits the user when a slot is free, otherwise appends
// them to the role's waitlist. The availability check and the insert run
// under the role lock so concurrent registrations cannot overshoot the cap.
func (s *service) RegisterOrQueue(ctx context.Context, userID int64, userName string, role domain.Role, category, cluster string) (*RegistrationOutcome, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	var outcome *RegistrationOutcome
	err := s.WithRoleLock(role, func() error {
		if _, err := s.participantRepo.GetByUserID(ctx, userID); err == nil {
			return domain.ErrDuplicateActive
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		// A user holding a queue position cannot register again, even when a
		// slot happens to be free; offer holders go through Confirm.
		if _, err := s.waitlist.ActiveEntry(ctx, userID); err == nil {
			return domain.ErrDuplicateActive
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		available, err := s.capacity.Available(ctx, role)
		if err != nil {
			return err
		}

		if available > 0 {
			p := &participants.Participant{
				UserID:       userID,
				Role:         role,
				UserName:     userName,
				Category:     category,
				Cluster:      cluster,
				RegisteredAt: time.Now(),
			}
			if err := s.participantRepo.Create(ctx, p); err != nil {
				return err
			}

			occupied, _ := s.capacity.Occupied(ctx, role)
			limit, _ := s.capacity.Limit(ctx, role)
			s.logger.LogAdmission(ctx, userID, string(role), occupied, limit)
			s.dispatch(notifications.NewMessage(userID, notifications.KindAdmitted, notifications.AdmittedText(string(role))))

			outcome = &RegistrationOutcome{Admitted: true, Participant: p}
			return nil
		}

		entry, err := s.waitlist.Enqueue(ctx, userID, role, userName, category, cluster)
		if err != nil {
			return err
		}
		outcome = &RegistrationOutcome{Admitted: false, Entry: entry, Position: entry.Position}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Confirm claims an open slot offer. The entry must be notified and inside
// its confirmation window. If the slot was lost to a concurrent change the
// entry stays notified and ErrCapacityExceeded is returned.
func (s *service) Confirm(ctx context.Context, userID int64) (*participants.Participant, error) {
	entry, err := s.waitlist.ActiveEntry(ctx, userID)
	if err != nil {
		return nil, err
	}

	var promoted *participants.Participant
	err = s.WithRoleLock(entry.Role, func() error {
		// Re-read under the lock: the window may have lapsed or a sweep may
		// have reverted the entry while we waited.
		entry, err = s.waitlist.ActiveEntry(ctx, userID)
		if err != nil {
			return err
		}
		if !entry.IsConfirmable(time.Now()) {
			return fmt.Errorf("entry %s is not confirmable: %w", entry.ID, domain.ErrInvalidTransition)
		}

		available, err := s.capacity.Available(ctx, entry.Role)
		if err != nil {
			return err
		}
		if available <= 0 {
			return domain.ErrCapacityExceeded
		}

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txParticipants := s.participantRepo.WithTx(tx)
			txWaitlist := s.waitlist.WithTx(tx)

			p := &participants.Participant{
				UserID:       entry.UserID,
				Role:         entry.Role,
				UserName:     entry.UserName,
				Category:     entry.Category,
				Cluster:      entry.Cluster,
				RegisteredAt: time.Now(),
			}
			if err := txParticipants.Create(ctx, p); err != nil {
				return err
			}
			if err := txWaitlist.Remove(ctx, entry.ID); err != nil {
				return err
			}
			promoted = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(notifications.NewMessage(userID, notifications.KindAdmitted, notifications.AdmittedText(string(entry.Role))))
	return promoted, nil
}

// Decline gives up an open slot offer. The entry is removed and the freed
// offer goes to the next candidate.
func (s *service) Decline(ctx context.Context, userID int64) error {
	entry, err := s.waitlist.ActiveEntry(ctx, userID)
	if err != nil {
		return err
	}
	if !entry.IsNotified() {
		return fmt.Errorf("entry %s is %s: %w", entry.ID, entry.Status, domain.ErrInvalidTransition)
	}

	return s.WithRoleLock(entry.Role, func() error {
		if err := s.waitlist.Remove(ctx, entry.ID); err != nil {
			return err
		}
		return s.notifyNext(ctx, entry.Role)
	})
}

// Leave removes a waiting entry from the queue. Users holding an open offer
// go through Decline instead.
func (s *service) Leave(ctx context.Context, userID int64) error {
	entry, err := s.waitlist.ActiveEntry(ctx, userID)
	if err != nil {
		return err
	}
	if entry.IsNotified() {
		return s.Decline(ctx, userID)
	}
	return s.waitlist.Remove(ctx, entry.ID)
}

// RemoveParticipant revokes an occupied slot and hands it to the waitlist
func (s *service) RemoveParticipant(ctx context.Context, userID int64) error {
	p, err := s.participantRepo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	return s.WithRoleLock(p.Role, func() error {
		if err := s.participantRepo.Delete(ctx, userID); err != nil {
			return err
		}

		s.dispatch(notifications.NewMessage(userID, notifications.KindRemoved, notifications.RemovedText(string(p.Role))))
		return s.notifyNext(ctx, p.Role)
	})
}

// SetLimit changes a role's capacity. Raising it pushes the freed slots into
// the notification path.
func (s *service) SetLimit(ctx context.Context, role domain.Role, newMax int) (*capacity.LimitChange, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	var change *capacity.LimitChange
	err := s.WithRoleLock(role, func() error {
		c, err := s.capacity.SetLimit(ctx, role, newMax)
		if err != nil {
			return err
		}
		change = c

		if change.Freed > 0 {
			return s.notifyNext(ctx, role)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return change, nil
}

// PromoteUser admits a queued user by expanding the role's capacity by one.
// Nobody is displaced: limit+1, insert participant, delete entry, atomically.
func (s *service) PromoteUser(ctx context.Context, userID int64) (*AdminActionResult, error) {
	entry, err := s.waitlist.ActiveEntry(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &AdminActionResult{Success: false, Error: "user has no active waitlist entry"}, nil
		}
		return nil, err
	}

	var result *AdminActionResult
	err = s.WithRoleLock(entry.Role, func() error {
		oldLimit, err := s.capacity.Limit(ctx, entry.Role)
		if err != nil {
			return err
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txCapacity := s.capacity.WithTx(tx)
			txParticipants := s.participantRepo.WithTx(tx)
			txWaitlist := s.waitlist.WithTx(tx)

			if _, err := txCapacity.SetLimit(ctx, entry.Role, oldLimit+1); err != nil {
				return err
			}

			p := &participants.Participant{
				UserID:       entry.UserID,
				Role:         entry.Role,
				UserName:     entry.UserName,
				Category:     entry.Category,
				Cluster:      entry.Cluster,
				RegisteredAt: time.Now(),
			}
			if err := txParticipants.Create(ctx, p); err != nil {
				return err
			}
			return txWaitlist.Remove(ctx, entry.ID)
		})
		if err != nil {
			return err
		}

		result = &AdminActionResult{
			Success:  true,
			UserName: entry.UserName,
			Role:     entry.Role,
			OldLimit: oldLimit,
			NewLimit: oldLimit + 1,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(notifications.NewMessage(userID, notifications.KindAdmitted, notifications.AdmittedText(string(entry.Role))))
	return result, nil
}

// DemoteUser is the inverse of PromoteUser: the participant goes back to the
// waitlist and the role's capacity shrinks by one. Re-insertion point is a
// config policy, front by default.
func (s *service) DemoteUser(ctx context.Context, userID int64) (*AdminActionResult, error) {
	p, err := s.participantRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &AdminActionResult{Success: false, Error: "user is not a participant"}, nil
		}
		return nil, err
	}

	var result *AdminActionResult
	err = s.WithRoleLock(p.Role, func() error {
		oldLimit, err := s.capacity.Limit(ctx, p.Role)
		if err != nil {
			return err
		}
		if oldLimit == 0 {
			return fmt.Errorf("%w: limit already zero for role %s", domain.ErrSettingsInvalid, p.Role)
		}

		joinDate := time.Now()
		if s.demoteReinsert != "back" {
			front, ok, err := s.waitlist.FrontJoinDate(ctx, p.Role)
			if err != nil {
				return err
			}
			if ok && !front.After(joinDate) {
				joinDate = front.Add(-time.Second)
			}
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txCapacity := s.capacity.WithTx(tx)
			txParticipants := s.participantRepo.WithTx(tx)
			txWaitlist := s.waitlist.WithTx(tx)

			if err := txParticipants.Delete(ctx, userID); err != nil {
				return err
			}
			if _, err := txCapacity.SetLimit(ctx, p.Role, oldLimit-1); err != nil {
				return err
			}
			_, err := txWaitlist.EnqueueAt(ctx, userID, p.Role, p.UserName, p.Category, p.Cluster, joinDate)
			return err
		})
		if err != nil {
			return err
		}

		result = &AdminActionResult{
			Success:  true,
			UserName: p.UserName,
			Role:     p.Role,
			OldLimit: oldLimit,
			NewLimit: oldLimit - 1,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(notifications.NewMessage(userID, notifications.KindDemoted, notifications.DemotedText(string(p.Role), 1)))
	return result, nil
}

// PurgeUser is the blocked-delivery hard signal: the user disappears from
// the capacity pool, the waitlist and any pending transfer. No notifications
// go out, delivery to them is what failed in the first place.
func (s *service) PurgeUser(ctx context.Context, userID int64) error {
	p, err := s.participantRepo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if p != nil {
		err := s.WithRoleLock(p.Role, func() error {
			if err := s.participantRepo.Delete(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return s.notifyNext(ctx, p.Role)
		})
		if err != nil {
			return err
		}
	}

	entry, err := s.waitlist.ActiveEntry(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if entry != nil {
		if err := s.WithRoleLock(entry.Role, func() error {
			if err := s.waitlist.Remove(ctx, entry.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if entry.IsNotified() {
				return s.notifyNext(ctx, entry.Role)
			}
			return nil
		}); err != nil {
			return err
		}
	}

	cancelled, err := s.transfers.CancelActiveByUser(ctx, userID)
	if err != nil {
		return err
	}
	if cancelled > 0 {
		s.logger.Info("cancelled transfers for purged user", "user_id", userID, "count", cancelled)
	}
	return nil
}

// Summary builds the admin capacity view across roles
func (s *service) Summary(ctx context.Context) ([]RoleSummary, error) {
	stats, err := s.waitlist.Stats(ctx)
	if err != nil {
		return nil, err
	}
	byRole := make(map[domain.Role]waitlist.RoleStats, len(stats.Roles))
	for _, rs := range stats.Roles {
		byRole[rs.Role] = rs
	}

	summaries := make([]RoleSummary, 0, len(domain.Roles()))
	for _, role := range domain.Roles() {
		limit, err := s.capacity.Limit(ctx, role)
		if err != nil {
			return nil, err
		}
		occupied, err := s.capacity.Occupied(ctx, role)
		if err != nil {
			return nil, err
		}
		available := limit - occupied
		if available < 0 {
			available = 0
		}

		summaries = append(summaries, RoleSummary{
			Role:      role,
			Limit:     limit,
			Occupied:  occupied,
			Available: available,
			Waiting:   byRole[role].Waiting,
			Notified:  byRole[role].Notified,
		})
	}
	return summaries, nil
}

// SweepExpired reverts notified entries whose confirmation window lapsed and
// re-runs selection. Revert and reselection happen under the role lock so a
// Confirm waiting on the lock sees the entry already reverted.
func (s *service) SweepExpired(ctx context.Context) (int, error) {
	total := 0
	for _, role := range domain.Roles() {
		var reverted []waitlist.WaitlistEntry
		err := s.WithRoleLock(role, func() error {
			var err error
			reverted, err = s.waitlist.RevertExpired(ctx, role, time.Now(), s.sweepBatch)
			if err != nil {
				return err
			}
			if len(reverted) == 0 {
				return nil
			}
			return s.notifyNext(ctx, role)
		})
		if err != nil {
			s.logger.Error("sweep failed for role", "error", err, "role", string(role))
			continue
		}

		for _, entry := range reverted {
			s.dispatch(notifications.NewMessage(entry.UserID, notifications.KindOfferExpired, notifications.OfferExpiredText(string(role))))
		}
		total += len(reverted)
	}
	return total, nil
}

// notifyNext pushes open slots to the front of the queue. Must be called
// with the role lock held. Outstanding offers count against availability so
// a slot is never promised twice.
func (s *service) notifyNext(ctx context.Context, role domain.Role) error {
	limit, err := s.capacity.Limit(ctx, role)
	if err != nil {
		return err
	}
	occupied, err := s.capacity.Occupied(ctx, role)
	if err != nil {
		return err
	}

	if occupied > limit {
		s.logger.LogInvariantBreach(ctx, string(role), occupied, limit)
		if err := s.reconcile(ctx, role, occupied-limit); err != nil {
			return err
		}
		return nil
	}

	notified, err := s.waitlist.Entries(ctx, role, waitlist.StatusNotified)
	if err != nil {
		return err
	}

	open := limit - occupied - len(notified)
	if open <= 0 {
		return nil
	}

	selected, err := s.waitlist.SelectForNotification(ctx, role, open, s.confirmWindow)
	if err != nil {
		return err
	}

	for _, entry := range selected {
		msg := notifications.NewMessage(entry.UserID, notifications.KindSlotOffer,
			notifications.SlotOfferText(string(role), s.confirmWindow, *entry.ExpireDate))
		msg.ExpireAt = entry.ExpireDate
		s.dispatch(msg)
	}

	s.logger.LogSlotFreed(ctx, string(role), open, len(selected))
	return nil
}

// reconcile restores occupied <= limit by demoting the newest participants
// to the waitlist front. Runs with the role lock held.
func (s *service) reconcile(ctx context.Context, role domain.Role, excess int) error {
	for i := 0; i < excess; i++ {
		newest, err := s.participantRepo.LatestByRole(ctx, role)
		if err != nil {
			return err
		}

		front, ok, err := s.waitlist.FrontJoinDate(ctx, role)
		if err != nil {
			return err
		}
		joinDate := time.Now()
		if ok && !front.After(joinDate) {
			joinDate = front.Add(-time.Second)
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txParticipants := s.participantRepo.WithTx(tx)
			txWaitlist := s.waitlist.WithTx(tx)

			if err := txParticipants.Delete(ctx, newest.UserID); err != nil {
				return err
			}
			_, err := txWaitlist.EnqueueAt(ctx, newest.UserID, role, newest.UserName, newest.Category, newest.Cluster, joinDate)
			return err
		})
		if err != nil {
			return err
		}

		s.dispatch(notifications.NewMessage(newest.UserID, notifications.KindDemoted, notifications.DemotedText(string(role), 1)))
	}
	return nil
}

// dispatch hands the message to the notification pipeline without blocking
// the capacity path. Delivery outcomes feed back through the purge hook.
func (s *service) dispatch(msg *notifications.Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
			s.logger.Error("notification dispatch failed", "error", err, "user_id", msg.UserID, "kind", string(msg.Kind))
		}
	}()
}
