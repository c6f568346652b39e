package notifications

import (
	"fmt"
	"time"
)

// Message text builders. Telegram delivery is plain text; keep these short
// enough to read on a phone.

func SlotOfferText(role string, window time.Duration, expireAt time.Time) string {
	return fmt.Sprintf(
		"A %s slot just opened up for you! Confirm within %s (by %s) or the slot goes to the next person in line.",
		role, window, expireAt.Format("Jan 2 15:04 MST"))
}

func AdmittedText(role string) string {
	return fmt.Sprintf("You're in! Your %s registration is confirmed.", role)
}

func OfferExpiredText(role string) string {
	return fmt.Sprintf("Your %s slot offer expired. You're back in the queue at your original position.", role)
}

func DemotedText(role string, position int) string {
	return fmt.Sprintf("Your %s registration was moved to the waitlist (position %d).", role, position)
}

func RemovedText(role string) string {
	return fmt.Sprintf("Your %s registration has been removed by an organizer.", role)
}

func TransferConsumedText(code string) string {
	return fmt.Sprintf("Someone accepted your referral code %s. The handoff now awaits organizer approval.", code)
}

func TransferApprovedText() string {
	return "Your slot transfer was approved. The slot now belongs to its new owner."
}

func TransferRejectedText() string {
	return "Your slot transfer was rejected. You keep your slot; the referral code is no longer valid."
}
