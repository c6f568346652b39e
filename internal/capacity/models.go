package capacity

import (
	"time"

	"raceday/internal/shared/domain"
)

// Setting is one row of the admin-mutable key-value store. Capacity limits
// live under the max_runners / max_volunteers keys.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;type:varchar(64)"`
	Value     string    `json:"value" gorm:"type:varchar(255);not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the default pluralization
func (Setting) TableName() string {
	return "settings"
}

// LimitChange reports a committed limit mutation. Freed is the number of
// newly available slots the caller should feed into the notification path.
type LimitChange struct {
	Role     domain.Role `json:"role"`
	OldLimit int         `json:"old_limit"`
	NewLimit int         `json:"new_limit"`
	Freed    int         `json:"freed"`
}
