package constants

import (
	"fmt"
	"time"
)

// Redis cache keys and TTLs for raceday.
// Pattern: raceday:{module}:{operation}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_STATIC_LONG  = 24 * time.Hour // event configuration, rarely changes
	TTL_STATIC_SHORT = 6 * time.Hour  // role limits

	TTL_DYNAMIC_MEDIUM = 10 * time.Minute // participant listings
	TTL_DYNAMIC_SHORT  = 5 * time.Minute  // waitlist stats

	TTL_REALTIME_MEDIUM = 1 * time.Minute  // waitlist positions
	TTL_REALTIME_SHORT  = 30 * time.Second // live capacity counts
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "raceday"
)

// ================== CAPACITY MODULE ==================

const (
	CACHE_KEY_CAPACITY_SUMMARY = CACHE_PREFIX + ":capacity:summary"       // all roles
	CACHE_KEY_CAPACITY_ROLE    = CACHE_PREFIX + ":capacity:summary:role:" // + role
)

const (
	TTL_CAPACITY_SUMMARY = TTL_REALTIME_SHORT
)

// ================== WAITLIST MODULE ==================

const (
	CACHE_KEY_WAITLIST_STATS    = CACHE_PREFIX + ":waitlist:stats"
	CACHE_KEY_WAITLIST_ENTRIES  = CACHE_PREFIX + ":waitlist:entries:role:"  // + role
	CACHE_KEY_WAITLIST_POSITION = CACHE_PREFIX + ":waitlist:position:user:" // + user-id
)

const (
	TTL_WAITLIST_STATS    = TTL_DYNAMIC_SHORT
	TTL_WAITLIST_POSITION = TTL_REALTIME_MEDIUM
)

// ================== PARTICIPANTS MODULE ==================

const (
	CACHE_KEY_PARTICIPANTS_LIST = CACHE_PREFIX + ":participants:list:role:" // + role
)

const (
	TTL_PARTICIPANTS_LIST = TTL_DYNAMIC_MEDIUM
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_CAPACITY     = CACHE_PREFIX + ":capacity:*"
	PATTERN_INVALIDATE_WAITLIST     = CACHE_PREFIX + ":waitlist:*"
	PATTERN_INVALIDATE_PARTICIPANTS = CACHE_PREFIX + ":participants:*"
)

// ================== HELPER FUNCTIONS ==================

func BuildCapacityRoleKey(role string) string {
	return CACHE_KEY_CAPACITY_ROLE + role
}

func BuildWaitlistEntriesKey(role string) string {
	return CACHE_KEY_WAITLIST_ENTRIES + role
}

func BuildWaitlistPositionKey(userID int64) string {
	return CACHE_KEY_WAITLIST_POSITION + fmt.Sprintf("%d", userID)
}

func BuildParticipantsListKey(role string) string {
	return CACHE_KEY_PARTICIPANTS_LIST + role
}
