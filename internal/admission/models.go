package admission

import (
	"raceday/internal/participants"
	"raceday/internal/shared/domain"
	"raceday/internal/waitlist"
)

// RegistrationOutcome reports where a registration landed: straight into the
// capacity pool or on the waitlist.
type RegistrationOutcome struct {
	Admitted    bool                      `json:"admitted"`
	Participant *participants.Participant `json:"participant,omitempty"`
	Entry       *waitlist.WaitlistEntry   `json:"waitlist_entry,omitempty"`
	Position    int                       `json:"position,omitempty"`
}

// AdminActionResult reports the outcome of a promote or demote
type AdminActionResult struct {
	Success  bool        `json:"success"`
	UserName string      `json:"user_name,omitempty"`
	Role     domain.Role `json:"role,omitempty"`
	OldLimit int         `json:"old_limit,omitempty"`
	NewLimit int         `json:"new_limit,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// RoleSummary is the admin capacity view for one role
type RoleSummary struct {
	Role      domain.Role `json:"role"`
	Limit     int         `json:"limit"`
	Occupied  int         `json:"occupied"`
	Available int         `json:"available"`
	Waiting   int         `json:"waiting"`
	Notified  int         `json:"notified"`
}

// RegisterRequest binds an incoming registration
type RegisterRequest struct {
	Role     string `json:"role" validate:"required,oneof=runner volunteer"`
	UserName string `json:"user_name" validate:"required,max=128"`
	Category string `json:"category" validate:"max=64"`
	Cluster  string `json:"cluster" validate:"max=64"`
}

// SetLimitRequest binds an admin capacity change
type SetLimitRequest struct {
	Limit int `json:"limit" validate:"min=0"`
}
