package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"raceday/internal/shared/domain"
	"raceday/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestService(t *testing.T) Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&WaitlistEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewService(NewRepository(db), nil, logger.New())
}

func TestEnqueue_DuplicateActive(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Enqueue(ctx, 1, domain.RoleRunner, "Alice", "10K", "A"); err != nil {
		t.Fatalf("first enqueue failed: %v", err)
	}

	// Same user cannot join again, even for another role
	if _, err := svc.Enqueue(ctx, 1, domain.RoleVolunteer, "Alice", "", ""); !errors.Is(err, domain.ErrDuplicateActive) {
		t.Fatalf("expected ErrDuplicateActive, got %v", err)
	}
}

func TestEnqueue_ReportsPosition(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, 1, domain.RoleRunner, "Alice", "", "")
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if first.Position != 1 {
		t.Errorf("expected position 1, got %d", first.Position)
	}

	second, err := svc.Enqueue(ctx, 2, domain.RoleRunner, "Bob", "", "")
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if second.Position != 2 {
		t.Errorf("expected position 2, got %d", second.Position)
	}
}

func TestEnqueue_InvalidRole(t *testing.T) {
	svc := setupTestService(t)

	if _, err := svc.Enqueue(context.Background(), 1, domain.Role("spectator"), "Alice", "", ""); err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestSelectForNotification_FIFOOrder(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := svc.EnqueueAt(ctx, int64(i+1), domain.RoleRunner, name, "", "", base.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("enqueue %s failed: %v", name, err)
		}
	}

	selected, err := svc.SelectForNotification(ctx, domain.RoleRunner, 2, 24*time.Hour)
	if err != nil {
		t.Fatalf("SelectForNotification failed: %v", err)
	}
	if len(selected) != 2 {
		t.Fatalf("expected 2 selected, got %d", len(selected))
	}
	if selected[0].UserID != 1 || selected[1].UserID != 2 {
		t.Errorf("expected users 1,2 in join order, got %d,%d", selected[0].UserID, selected[1].UserID)
	}
	for _, entry := range selected {
		if entry.Status != StatusNotified {
			t.Errorf("expected status notified, got %s", entry.Status)
		}
		if entry.ExpireDate == nil || entry.NotifiedDate == nil {
			t.Error("expected notified and expire dates to be set")
		}
	}

	// Carol is still waiting, a second selection picks only her
	selected, err = svc.SelectForNotification(ctx, domain.RoleRunner, 5, 24*time.Hour)
	if err != nil {
		t.Fatalf("second SelectForNotification failed: %v", err)
	}
	if len(selected) != 1 || selected[0].UserID != 3 {
		t.Fatalf("expected only user 3, got %+v", selected)
	}
}

func TestRevertExpired_KeepsJoinDate(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	joinDate := time.Now().Add(-2 * time.Hour).Truncate(time.Second)

	if _, err := svc.EnqueueAt(ctx, 1, domain.RoleRunner, "Alice", "", "", joinDate); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	// A negative window makes the offer lapse immediately
	if _, err := svc.SelectForNotification(ctx, domain.RoleRunner, 1, -time.Minute); err != nil {
		t.Fatalf("SelectForNotification failed: %v", err)
	}

	reverted, err := svc.RevertExpired(ctx, domain.RoleRunner, time.Now(), 100)
	if err != nil {
		t.Fatalf("RevertExpired failed: %v", err)
	}
	if len(reverted) != 1 || reverted[0].UserID != 1 {
		t.Fatalf("expected user 1 reverted, got %+v", reverted)
	}

	entry, err := svc.ActiveEntry(ctx, 1)
	if err != nil {
		t.Fatalf("ActiveEntry failed: %v", err)
	}
	if entry.Status != StatusWaiting {
		t.Errorf("expected status waiting after revert, got %s", entry.Status)
	}
	if entry.NotifiedDate != nil || entry.ExpireDate != nil {
		t.Error("expected notified and expire dates cleared")
	}
	if !entry.JoinDate.Equal(joinDate) {
		t.Errorf("expected join date %v preserved, got %v", joinDate, entry.JoinDate)
	}
}

func TestPosition(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := int64(1); i <= 3; i++ {
		if _, err := svc.EnqueueAt(ctx, i, domain.RoleRunner, "User", "", "", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	position, err := svc.Position(ctx, 2)
	if err != nil {
		t.Fatalf("Position failed: %v", err)
	}
	if position.Position != 2 {
		t.Errorf("expected position 2, got %d", position.Position)
	}
	if position.Total != 3 {
		t.Errorf("expected total 3, got %d", position.Total)
	}

	if _, err := svc.Position(ctx, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestEnqueueAt_FrontInsertion(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	if _, err := svc.EnqueueAt(ctx, 1, domain.RoleRunner, "Alice", "", "", base); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	front, ok, err := svc.FrontJoinDate(ctx, domain.RoleRunner)
	if err != nil || !ok {
		t.Fatalf("FrontJoinDate failed: ok=%v err=%v", ok, err)
	}

	// A demoted user re-enters ahead of the current front
	if _, err := svc.EnqueueAt(ctx, 2, domain.RoleRunner, "Bob", "", "", front.Add(-time.Second)); err != nil {
		t.Fatalf("front enqueue failed: %v", err)
	}

	selected, err := svc.SelectForNotification(ctx, domain.RoleRunner, 1, 24*time.Hour)
	if err != nil {
		t.Fatalf("SelectForNotification failed: %v", err)
	}
	if len(selected) != 1 || selected[0].UserID != 2 {
		t.Fatalf("expected front-inserted user 2 first, got %+v", selected)
	}
}

func TestStats(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if _, err := svc.Enqueue(ctx, i, domain.RoleRunner, "User", "", ""); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}
	if _, err := svc.Enqueue(ctx, 4, domain.RoleVolunteer, "Vol", "", ""); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := svc.SelectForNotification(ctx, domain.RoleRunner, 1, 24*time.Hour); err != nil {
		t.Fatalf("SelectForNotification failed: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 4 {
		t.Errorf("expected total 4, got %d", stats.Total)
	}
	for _, rs := range stats.Roles {
		switch rs.Role {
		case domain.RoleRunner:
			if rs.Waiting != 2 || rs.Notified != 1 {
				t.Errorf("runner stats wrong: %+v", rs)
			}
		case domain.RoleVolunteer:
			if rs.Waiting != 1 || rs.Notified != 0 {
				t.Errorf("volunteer stats wrong: %+v", rs)
			}
		}
	}
}
