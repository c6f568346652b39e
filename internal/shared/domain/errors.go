package domain

import "errors"

// Sentinel errors shared across the admission engine. Services wrap these with
// fmt.Errorf("...: %w", err); controllers map them to HTTP statuses with errors.Is.
var (
	// ErrCapacityExceeded is returned when an admission would push occupancy past
	// the role's limit, e.g. a notified user confirming a slot that was consumed
	// concurrently.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidTransition is returned for state-machine violations: confirming an
	// expired or non-notified waitlist entry, resolving an already-resolved
	// transfer, consuming a spent referral code.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDuplicateActive is returned when a user who already holds a slot or an
	// active waitlist entry tries to register again.
	ErrDuplicateActive = errors.New("user already registered or waitlisted")

	// ErrDuplicateActiveTransfer is returned when a participant with an
	// unresolved slot transfer requests another one.
	ErrDuplicateActiveTransfer = errors.New("active slot transfer already exists")

	// ErrNotFound covers unknown users, referral codes and transfer ids.
	ErrNotFound = errors.New("not found")

	// ErrLimitBelowOccupancy is returned when an admin tries to set a role limit
	// below the number of currently admitted participants.
	ErrLimitBelowOccupancy = errors.New("limit below current occupancy")

	// ErrSettingsMissing and ErrSettingsInvalid flag broken capacity settings.
	// Absent or malformed max_runners/max_volunteers values are a configuration
	// error, never a silent default.
	ErrSettingsMissing = errors.New("capacity setting missing")
	ErrSettingsInvalid = errors.New("capacity setting invalid")
)
