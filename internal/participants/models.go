package participants

import (
	"time"

	"raceday/internal/shared/domain"
)

// PaymentStatus is a single mutable bookkeeping field. There is no payment
// workflow behind it; it only travels with the participant record.
type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "unpaid"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
)

// IsValid checks if the status is one of the known payment states.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusConfirmed:
		return true
	default:
		return false
	}
}

// Participant is an admitted registrant occupying one capacity slot.
// Rows are inserted and deleted only through the admission service.
type Participant struct {
	UserID        int64         `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Role          domain.Role   `json:"role" gorm:"type:varchar(16);not null;index"`
	UserName      string        `json:"user_name" gorm:"type:varchar(128)"`
	PaymentStatus PaymentStatus `json:"payment_status" gorm:"type:varchar(16);not null;default:'unpaid'"`
	BibNumber     *int          `json:"bib_number,omitempty" gorm:"uniqueIndex"`
	Category      string        `json:"category" gorm:"type:varchar(64)"`
	Cluster       string        `json:"cluster" gorm:"type:varchar(64)"`
	RegisteredAt  time.Time     `json:"registered_at" gorm:"not null"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the default pluralization
func (Participant) TableName() string {
	return "participants"
}
