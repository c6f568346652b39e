package waitlist

import (
	"time"

	"raceday/internal/shared/domain"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a waitlist entry
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusNotified  Status = "notified"
	StatusConfirmed Status = "confirmed"
	StatusDeclined  Status = "declined"
)

// IsValid checks if the waitlist status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusNotified, StatusConfirmed, StatusDeclined:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status.
// The notified -> waiting edge is the expiry revert: an unclaimed offer puts
// the entry back in the queue at its original position.
func (s Status) CanTransitionTo(target Status) bool {
	validTransitions := map[Status][]Status{
		StatusWaiting:   {StatusNotified},
		StatusNotified:  {StatusConfirmed, StatusDeclined, StatusWaiting},
		StatusConfirmed: {}, // Terminal state
		StatusDeclined:  {}, // Terminal state
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsActive reports whether the entry still occupies a queue position
func (s Status) IsActive() bool {
	return s == StatusWaiting || s == StatusNotified
}

// WaitlistEntry represents a registrant queued for a slot in a role's
// capacity pool. FIFO order is (join_date, created_at).
type WaitlistEntry struct {
	ID           uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       int64       `json:"user_id" gorm:"not null;index"`
	Role         domain.Role `json:"role" gorm:"type:varchar(16);not null;index"`
	UserName     string      `json:"user_name" gorm:"type:varchar(128)"`
	Category     string      `json:"category" gorm:"type:varchar(64)"`
	Cluster      string      `json:"cluster" gorm:"type:varchar(64)"`
	Status       Status      `json:"status" gorm:"type:varchar(16);not null;index"`
	JoinDate     time.Time   `json:"join_date" gorm:"not null;index"`
	NotifiedDate *time.Time  `json:"notified_date,omitempty"`
	ExpireDate   *time.Time  `json:"expire_date,omitempty"`
	CreatedAt    time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `json:"updated_at" gorm:"autoUpdateTime"`

	// Position is the 1-based queue position at insert time; not persisted
	Position int `json:"position,omitempty" gorm:"-"`
}

// TableName overrides the default pluralization
func (WaitlistEntry) TableName() string {
	return "waitlist_entries"
}

// IsNotified returns true if the user holds an open slot offer
func (we *WaitlistEntry) IsNotified() bool {
	return we.Status == StatusNotified
}

// IsConfirmable reports whether the offer can still be claimed at the given
// instant. Past ExpireDate the entry is never confirmable.
func (we *WaitlistEntry) IsConfirmable(now time.Time) bool {
	return we.Status == StatusNotified && we.ExpireDate != nil && !now.After(*we.ExpireDate)
}

// TimeRemaining returns the time left in the confirmation window
func (we *WaitlistEntry) TimeRemaining(now time.Time) *time.Duration {
	if we.ExpireDate == nil {
		return nil
	}
	remaining := we.ExpireDate.Sub(now)
	if remaining < 0 {
		return nil
	}
	return &remaining
}

// RoleStats summarizes queue occupancy for one role
type RoleStats struct {
	Role     domain.Role `json:"role"`
	Waiting  int         `json:"waiting"`
	Notified int         `json:"notified"`
}

// StatsResponse represents waitlist statistics across roles
type StatsResponse struct {
	Total int         `json:"total"`
	Roles []RoleStats `json:"roles"`
}

// PositionResponse is returned to a queued user asking where they stand
type PositionResponse struct {
	Position      int         `json:"position"`
	Total         int         `json:"total"`
	Status        Status      `json:"status"`
	Role          domain.Role `json:"role"`
	JoinDate      time.Time   `json:"join_date"`
	ExpireDate    *time.Time  `json:"expire_date,omitempty"`
	TimeRemaining *string     `json:"time_remaining,omitempty"`
}
