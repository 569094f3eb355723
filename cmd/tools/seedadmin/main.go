// Command seedadmin creates an admin account so a fresh deployment has a
// login before any other tooling exists. Intended for operators, not users.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlasparts/backend-parts/internal/config"
	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/migrations"
)

func main() {
	email := flag.String("email", "", "admin email (required)")
	name := flag.String("name", "Admin", "display name")
	password := flag.String("password", "", "password (required, min 8 chars)")
	migrate := flag.Bool("migrate", false, "run pending migrations first")
	flag.Parse()

	if err := run(*email, *name, *password, *migrate); err != nil {
		fmt.Fprintln(os.Stderr, "seedadmin:", err)
		os.Exit(1)
	}
}

func run(email, name, password string, migrate bool) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("-email is required")
	}
	if len(password) < 8 {
		return fmt.Errorf("-password must be at least 8 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if migrate {
		if err := migrations.Run(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	queries := db.New(pool)
	if existing, err := queries.GetAdminByEmail(ctx, email); err == nil {
		return fmt.Errorf("admin %s already exists (id %s)", existing.Email, existing.ID)
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin, err := queries.CreateAdmin(ctx, uuid.NewString(), email, name, hash)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	fmt.Printf("created admin %s (%s)\n", admin.Email, admin.ID)
	return nil
}
