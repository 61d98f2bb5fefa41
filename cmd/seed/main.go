// Command seed populates a fresh database with the baseline roles, a starter
// site and department, and an initial admin account.
//
// The admin password comes from SEED_ADMIN_PASSWORD and is created with
// must_change_password set, so it has to be rotated on first login.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"safeday/backend/internal/config"
	"safeday/backend/internal/db"
	"safeday/backend/internal/security"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading config failed")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL must be set")
	}
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		log.Fatal().Msg("SEED_ADMIN_PASSWORD must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres failed")
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("begin failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, role := range []string{"admin", "manager", "supervisor", "employee"} {
		if _, err := tx.Exec(ctx, `
			INSERT INTO roles (role_name) VALUES ($1)
			ON CONFLICT (role_name) DO NOTHING`, role); err != nil {
			log.Fatal().Err(err).Str("role", role).Msg("seeding role failed")
		}
	}

	var siteID int64
	err = tx.QueryRow(ctx, `SELECT id FROM sites WHERE site_name = $1`, "Head Office").Scan(&siteID)
	if err != nil {
		if err = tx.QueryRow(ctx, `
			INSERT INTO sites (site_name) VALUES ($1) RETURNING id`, "Head Office").Scan(&siteID); err != nil {
			log.Fatal().Err(err).Msg("seeding site failed")
		}
	}

	var departmentID int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM departments WHERE site_id = $1 AND department_name = $2`,
		siteID, "Administration").Scan(&departmentID)
	if err != nil {
		if err = tx.QueryRow(ctx, `
			INSERT INTO departments (site_id, department_name) VALUES ($1, $2) RETURNING id`,
			siteID, "Administration").Scan(&departmentID); err != nil {
			log.Fatal().Err(err).Msg("seeding department failed")
		}
	}

	var existing int64
	if err := tx.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE trim(upper(name)) = trim(upper($1)) AND site_id = $2 AND department_id = $3 AND deleted_at IS NULL`,
		"Administrator", siteID, departmentID).Scan(&existing); err != nil {
		log.Fatal().Err(err).Msg("checking admin failed")
	}
	if existing == 0 {
		hash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(adminPassword))
		if err != nil {
			log.Fatal().Err(err).Msg("hashing admin password failed")
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO users (name, email, password, role_id, site_id, department_id, must_change_password)
			SELECT $1, NULLIF($2, ''), $3, r.id, $4, $5, TRUE
			FROM roles r WHERE r.role_name = 'admin'`,
			"Administrator", os.Getenv("SEED_ADMIN_EMAIL"), hash, siteID, departmentID); err != nil {
			log.Fatal().Err(err).Msg("seeding admin failed")
		}
		log.Info().Msg("admin account created, password must be changed on first login")
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Msg("commit failed")
	}
	log.Info().Msg("seed complete")
}
