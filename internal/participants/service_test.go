package participants

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

func setupTestService(t *testing.T) (Service, Repository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&Participant{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	repo := NewRepository(db)
	return NewService(repo, nil, logger.New()), repo
}

func TestListByRole_OrderedByRegistration(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, name := range []string{"Alice", "Bob"} {
		p := &Participant{
			UserID:       int64(i + 1),
			Role:         domain.RoleRunner,
			UserName:     name,
			RegisteredAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, p); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	list, err := svc.ListByRole(ctx, domain.RoleRunner)
	if err != nil {
		t.Fatalf("ListByRole failed: %v", err)
	}
	if len(list) != 2 || list[0].UserName != "Alice" || list[1].UserName != "Bob" {
		t.Errorf("unexpected order: %+v", list)
	}

	if _, err := svc.ListByRole(ctx, domain.Role("spectator")); err == nil {
		t.Error("expected error for invalid role")
	}
}

func TestSetPaymentStatus(t *testing.T) {
	svc, repo := setupTestService(t)
	ctx := context.Background()

	p := &Participant{UserID: 1, Role: domain.RoleRunner, RegisteredAt: time.Now()}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.SetPaymentStatus(ctx, 1, PaymentStatusPaid); err != nil {
		t.Fatalf("SetPaymentStatus failed: %v", err)
	}

	updated, err := svc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.PaymentStatus != PaymentStatusPaid {
		t.Errorf("expected paid, got %s", updated.PaymentStatus)
	}

	if err := svc.SetPaymentStatus(ctx, 1, PaymentStatus("refunded")); err == nil {
		t.Error("expected error for unknown status")
	}

	if err := svc.SetPaymentStatus(ctx, 99, PaymentStatusPaid); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}
