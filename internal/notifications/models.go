package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an outbound message
type Kind string

const (
	KindSlotOffer         Kind = "slot_offer"         // notified entry, confirmation window open
	KindAdmitted          Kind = "admitted"           // direct admission or confirmed promotion
	KindOfferExpired      Kind = "offer_expired"      // confirmation window lapsed
	KindDemoted           Kind = "demoted"            // moved from participants back to the queue
	KindTransferConsumed  Kind = "transfer_consumed"  // referral code bound, awaiting approval
	KindTransferResolved  Kind = "transfer_resolved"  // approve/reject outcome
	KindRemoved           Kind = "removed"            // slot revoked by admin
)

// Outcome is the terminal delivery state of a send attempt
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeBlocked Outcome = "blocked" // recipient blocked the bot; hard signal
	OutcomeFailed  Outcome = "failed"  // transient transport error
)

// Message is the dispatch payload. It crosses the Kafka boundary in kafka
// mode, so it stays flat and JSON-serializable.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	UserID    int64      `json:"user_id"`
	Kind      Kind       `json:"kind"`
	Text      string     `json:"text"`
	ExpireAt  *time.Time `json:"expire_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewMessage builds a dispatch payload
func NewMessage(userID int64, kind Kind, text string) *Message {
	return &Message{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// ToJSON serializes the message for the wire
func (m *Message) ToJSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// MessageFromJSON deserializes a wire payload
func MessageFromJSON(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &m, nil
}

// PartitionKey routes all messages for one user to the same partition so
// per-user ordering is preserved.
func (m *Message) PartitionKey() string {
	return fmt.Sprintf("user-%d", m.UserID)
}

// NotificationRecord is the audit row persisted per send attempt
type NotificationRecord struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    int64     `json:"user_id" gorm:"not null;index"`
	Kind      Kind      `json:"kind" gorm:"type:varchar(32);not null"`
	Text      string    `json:"text" gorm:"type:text"`
	Outcome   Outcome   `json:"outcome" gorm:"type:varchar(16);not null;index"`
	Error     *string   `json:"error,omitempty"`
	SentAt    time.Time `json:"sent_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the default pluralization
func (NotificationRecord) TableName() string {
	return "notification_records"
}
