package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the constraints AutoMigrate cannot express.
// Partial unique indexes enforce the one-active-row-per-user invariants at
// the storage layer as a backstop to the service-level checks.
func MigrateConstraints(db *gorm.DB) error {
	// One waiting/notified waitlist entry per user
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_one_active_per_user
		ON waitlist_entries (user_id)
		WHERE status IN ('waiting', 'notified');
	`).Error
	if err != nil {
		return err
	}

	// One pending/awaiting transfer per original user
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_transfers_one_active_per_user
		ON slot_transfers (original_user_id)
		WHERE status IN ('pending', 'awaiting_approval');
	`).Error
	if err != nil {
		return err
	}

	// Queue ordering scan: role + status + join order
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_waitlist_queue_order
		ON waitlist_entries (role, status, join_date, created_at);
	`).Error
	if err != nil {
		return err
	}

	// Expiry sweep scan
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_waitlist_expiry
		ON waitlist_entries (status, expire_date);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
