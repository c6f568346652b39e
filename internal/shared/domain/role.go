package domain

// Role is the capacity pool a registrant competes for. Every slot, waitlist
// entry and limit is scoped to exactly one role.
type Role string

const (
	RoleRunner    Role = "runner"
	RoleVolunteer Role = "volunteer"
)

// Roles lists every known role in a stable order.
func Roles() []Role {
	return []Role{RoleRunner, RoleVolunteer}
}

// IsValid checks if the role is one of the known capacity pools.
func (r Role) IsValid() bool {
	switch r {
	case RoleRunner, RoleVolunteer:
		return true
	default:
		return false
	}
}

// SettingsKey returns the settings-table key holding the role's capacity limit.
func (r Role) SettingsKey() string {
	switch r {
	case RoleVolunteer:
		return "max_volunteers"
	default:
		return "max_runners"
	}
}
