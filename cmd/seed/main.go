package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"raceday/internal/capacity"
	"raceday/internal/participants"
	"raceday/internal/shared/config"
	"raceday/internal/shared/database"
	"raceday/internal/shared/domain"
	"raceday/internal/waitlist"

	"github.com/google/uuid"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Raceday Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase removes all rows. Order does not matter since the schema
// carries no cross-table foreign keys, but settings go last so a failed run
// never leaves participants without limits.
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"notification_records",
		"slot_transfers",
		"waitlist_entries",
		"participants",
		"settings",
	}

	gormDB := s.db.GetSQLite()
	for _, table := range tables {
		if err := gormDB.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return fmt.Errorf("failed to clean table %s: %w", table, err)
		}
	}
	return nil
}

// SeedAll seeds capacity limits, a filled runner pool and a short waitlist
func (s *Seeder) SeedAll() error {
	if err := s.seedSettings(); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	if err := s.seedParticipants(); err != nil {
		return fmt.Errorf("failed to seed participants: %w", err)
	}
	if err := s.seedWaitlist(); err != nil {
		return fmt.Errorf("failed to seed waitlist: %w", err)
	}
	return nil
}

func (s *Seeder) seedSettings() error {
	settings := []capacity.Setting{
		{Key: domain.RoleRunner.SettingsKey(), Value: "5"},
		{Key: domain.RoleVolunteer.SettingsKey(), Value: "3"},
	}

	gormDB := s.db.GetSQLite()
	for _, setting := range settings {
		if err := gormDB.Create(&setting).Error; err != nil {
			return err
		}
		fmt.Printf("   📋 Setting %s = %s\n", setting.Key, setting.Value)
	}
	return nil
}

func (s *Seeder) seedParticipants() error {
	now := time.Now()
	repo := participants.NewRepository(s.db.GetSQLite())

	seeds := []participants.Participant{
		{UserID: 100001, Role: domain.RoleRunner, UserName: "Asha Rao", PaymentStatus: participants.PaymentStatusConfirmed, Category: "10K", Cluster: "A", RegisteredAt: now.Add(-96 * time.Hour)},
		{UserID: 100002, Role: domain.RoleRunner, UserName: "Ben Okafor", PaymentStatus: participants.PaymentStatusPaid, Category: "21K", Cluster: "B", RegisteredAt: now.Add(-72 * time.Hour)},
		{UserID: 100003, Role: domain.RoleRunner, UserName: "Carla Mendes", PaymentStatus: participants.PaymentStatusUnpaid, Category: "10K", Cluster: "A", RegisteredAt: now.Add(-48 * time.Hour)},
		{UserID: 100004, Role: domain.RoleVolunteer, UserName: "Dmitri Volkov", PaymentStatus: participants.PaymentStatusConfirmed, RegisteredAt: now.Add(-24 * time.Hour)},
	}

	ctx := context.Background()
	for i := range seeds {
		if err := repo.Create(ctx, &seeds[i]); err != nil {
			return err
		}
		fmt.Printf("   🏃 Participant %s (%s)\n", seeds[i].UserName, seeds[i].Role)
	}
	return nil
}

func (s *Seeder) seedWaitlist() error {
	now := time.Now()
	repo := waitlist.NewRepository(s.db.GetSQLite())

	seeds := []waitlist.WaitlistEntry{
		{ID: uuid.New(), UserID: 200001, Role: domain.RoleRunner, UserName: "Elif Demir", Category: "10K", Cluster: "C", Status: waitlist.StatusWaiting, JoinDate: now.Add(-36 * time.Hour)},
		{ID: uuid.New(), UserID: 200002, Role: domain.RoleRunner, UserName: "Farid Haddad", Category: "21K", Cluster: "B", Status: waitlist.StatusWaiting, JoinDate: now.Add(-20 * time.Hour)},
		{ID: uuid.New(), UserID: 200003, Role: domain.RoleVolunteer, UserName: "Grace Liu", Status: waitlist.StatusWaiting, JoinDate: now.Add(-12 * time.Hour)},
	}

	ctx := context.Background()
	for i := range seeds {
		if err := repo.Create(ctx, &seeds[i]); err != nil {
			return err
		}
		fmt.Printf("   ⏳ Waitlisted %s (%s)\n", seeds[i].UserName, seeds[i].Role)
	}
	return nil
}
