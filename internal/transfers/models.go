package transfers

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a slot transfer
type Status string

const (
	StatusPending          Status = "pending"
	StatusAwaitingApproval Status = "awaiting_approval"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
	StatusCancelled        Status = "cancelled"
)

// IsValid checks if the transfer status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAwaitingApproval, StatusApproved, StatusRejected, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	validTransitions := map[Status][]Status{
		StatusPending:          {StatusAwaitingApproval, StatusCancelled},
		StatusAwaitingApproval: {StatusApproved, StatusRejected},
		StatusApproved:         {}, // Terminal state
		StatusRejected:         {}, // Terminal state
		StatusCancelled:        {}, // Terminal state
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsActive reports whether the transfer still blocks a new one for its owner
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusAwaitingApproval
}

// SlotTransfer represents a peer-to-peer handoff of an occupied slot. The
// referral code is single-use: consuming it binds the new user and moves the
// transfer to awaiting_approval.
type SlotTransfer struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OriginalUserID int64      `json:"original_user_id" gorm:"not null;index"`
	NewUserID      *int64     `json:"new_user_id,omitempty"`
	ReferralCode   string     `json:"referral_code" gorm:"type:varchar(32);not null;uniqueIndex"`
	Status         Status     `json:"status" gorm:"type:varchar(24);not null;index"`
	RequestDate    time.Time  `json:"request_date" gorm:"not null"`
	ResolvedDate   *time.Time `json:"resolved_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the default pluralization
func (SlotTransfer) TableName() string {
	return "slot_transfers"
}

// ApprovalResult reports the outcome of resolving a transfer
type ApprovalResult struct {
	TransferID     uuid.UUID `json:"transfer_id"`
	Status         Status    `json:"status"`
	OriginalUserID int64     `json:"original_user_id"`
	NewUserID      int64     `json:"new_user_id"`
}
