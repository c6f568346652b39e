package database

import (
	"raceday/internal/capacity"
	"raceday/internal/notifications"
	"raceday/internal/participants"
	"raceday/internal/transfers"
	"raceday/internal/waitlist"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&capacity.Setting{},
		&participants.Participant{},
		&waitlist.WaitlistEntry{},
		&transfers.SlotTransfer{},
		&notifications.NotificationRecord{},
	)
}
