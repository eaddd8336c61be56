// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	appctx "clinicore/internal/core/context"
	"clinicore/internal/core/id"
	"clinicore/internal/infrastructure/storage/postgres"
	"clinicore/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	poolCfg := postgres.DefaultPoolConfig(dbURL)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	if err := seedAdminUser(ctx, pool, log); err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@clinicore.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	var existingID id.ID
	err := pool.Pool.QueryRow(ctx,
		`SELECT id FROM auth_users WHERE email = $1`,
		adminEmail,
	).Scan(&existingID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail, "user_id", existingID)
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID := id.New()
	now := time.Now().UTC()

	_, err = pool.Pool.Exec(ctx, `
		INSERT INTO auth_users (
			id, email, password_hash, name, role, franchise_id,
			is_active, failed_login_attempts, created_at, updated_at, version
		)
		VALUES ($1, $2, $3, 'System Admin', $4, $5, true, 0, $6, $6, 1)
	`, userID, adminEmail, string(passwordHash), appctx.RoleAdmin, id.Nil(), now)
	if err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}

	log.Infow("admin user created", "email", adminEmail, "user_id", userID)
	return nil
}

func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger) error {
	franchiseID := id.New()
	_, err := pool.Pool.Exec(ctx, `
		INSERT INTO cat_franchises (id, code, name, address, phone, active, deletion_mark, version)
		VALUES ($1, 'FR-000001', 'Central Clinic', '12 Hospital Road', '+1-555-0100', true, false, 1)
		ON CONFLICT (code) DO NOTHING
	`, franchiseID)
	if err != nil {
		return fmt.Errorf("insert demo franchise: %w", err)
	}

	medicines := []struct {
		code, name, brand, unit string
		rate, mrp               string
	}{
		{"MED-000001", "Paracetamol 500mg", "Calpol", "tablet", "1.20", "2.00"},
		{"MED-000002", "Amoxicillin 250mg", "Amoxil", "capsule", "3.50", "5.00"},
		{"MED-000003", "Cetirizine 10mg", "Zyrtec", "tablet", "0.80", "1.50"},
	}
	for _, m := range medicines {
		_, err := pool.Pool.Exec(ctx, `
			INSERT INTO cat_medicines (id, code, name, brand, unit, rate, mrp, deletion_mark, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, false, 1)
			ON CONFLICT (code) DO NOTHING
		`, id.New(), m.code, m.name, m.brand, m.unit, m.rate, m.mrp)
		if err != nil {
			return fmt.Errorf("insert demo medicine %s: %w", m.code, err)
		}
	}

	log.Infow("demo data seeded", "franchise_id", franchiseID, "medicines", len(medicines))
	return nil
}
