package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"labourtrack/internal/domain/auth"
	"labourtrack/internal/platform/config"
)

// Seed ensures the master account exists so a fresh deployment is reachable.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	username := strings.TrimSpace(cfg.SeedMasterUsername)
	if username == "" || cfg.SeedMasterPassword == "" {
		return nil
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM users WHERE username = $1", username).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.SeedMasterPassword)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
    INSERT INTO users (username, password_hash, role, first_name, force_password_change)
    VALUES ($1, $2, $3, $4, FALSE)
    ON CONFLICT (username) DO NOTHING
  `, username, hash, auth.RoleMaster, "Master")
	return err
}
