package capacity

import (
	"context"
	"errors"
	"testing"

	"raceday/internal/shared/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stubCounter struct {
	counts map[domain.Role]int
}

func (c *stubCounter) CountByRole(ctx context.Context, role domain.Role) (int, error) {
	return c.counts[role], nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&Setting{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func TestLimit_MissingSetting(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(NewRepository(db), &stubCounter{counts: map[domain.Role]int{}}, nil)

	_, err := svc.Limit(context.Background(), domain.RoleRunner)
	if !errors.Is(err, domain.ErrSettingsMissing) {
		t.Fatalf("expected ErrSettingsMissing, got %v", err)
	}
}

func TestLimit_InvalidSetting(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Setting{Key: "max_runners", Value: "not-a-number"})
	svc := NewService(NewRepository(db), &stubCounter{counts: map[domain.Role]int{}}, nil)

	_, err := svc.Limit(context.Background(), domain.RoleRunner)
	if !errors.Is(err, domain.ErrSettingsInvalid) {
		t.Fatalf("expected ErrSettingsInvalid, got %v", err)
	}
}

func TestAvailable_ClampsAtZero(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Setting{Key: "max_runners", Value: "3"})
	counter := &stubCounter{counts: map[domain.Role]int{domain.RoleRunner: 5}}
	svc := NewService(NewRepository(db), counter, nil)

	available, err := svc.Available(context.Background(), domain.RoleRunner)
	if err != nil {
		t.Fatalf("Available failed: %v", err)
	}
	if available != 0 {
		t.Errorf("expected available 0 when over-occupied, got %d", available)
	}
}

func TestSetLimit_BelowOccupancy(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Setting{Key: "max_runners", Value: "5"})
	counter := &stubCounter{counts: map[domain.Role]int{domain.RoleRunner: 4}}
	svc := NewService(NewRepository(db), counter, nil)

	_, err := svc.SetLimit(context.Background(), domain.RoleRunner, 3)
	if !errors.Is(err, domain.ErrLimitBelowOccupancy) {
		t.Fatalf("expected ErrLimitBelowOccupancy, got %v", err)
	}

	// Limit stays untouched
	limit, err := svc.Limit(context.Background(), domain.RoleRunner)
	if err != nil {
		t.Fatalf("Limit failed: %v", err)
	}
	if limit != 5 {
		t.Errorf("expected limit to remain 5, got %d", limit)
	}
}

func TestSetLimit_ReportsFreedSlots(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Setting{Key: "max_volunteers", Value: "2"})
	counter := &stubCounter{counts: map[domain.Role]int{domain.RoleVolunteer: 2}}
	svc := NewService(NewRepository(db), counter, nil)

	change, err := svc.SetLimit(context.Background(), domain.RoleVolunteer, 5)
	if err != nil {
		t.Fatalf("SetLimit failed: %v", err)
	}
	if change.OldLimit != 2 || change.NewLimit != 5 || change.Freed != 3 {
		t.Errorf("unexpected change: %+v", change)
	}

	// Lowering within occupancy frees nothing
	change, err = svc.SetLimit(context.Background(), domain.RoleVolunteer, 3)
	if err != nil {
		t.Fatalf("SetLimit failed: %v", err)
	}
	if change.Freed != 0 {
		t.Errorf("expected no freed slots when lowering, got %d", change.Freed)
	}
}

func TestSetLimit_RejectsNegative(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&Setting{Key: "max_runners", Value: "1"})
	svc := NewService(NewRepository(db), &stubCounter{counts: map[domain.Role]int{}}, nil)

	_, err := svc.SetLimit(context.Background(), domain.RoleRunner, -1)
	if !errors.Is(err, domain.ErrSettingsInvalid) {
		t.Fatalf("expected ErrSettingsInvalid, got %v", err)
	}
}
