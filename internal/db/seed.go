package db

import (
	"context"
	"errors"

	"github.com/Valerijkk/defect-tracker-lite/internal/config"
	"github.com/Valerijkk/defect-tracker-lite/internal/domain/user"
	"github.com/Valerijkk/defect-tracker-lite/internal/security"
)

// UserSeedStore is the slice of the users repo the seeder needs.
type UserSeedStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, email, passwordHash, role string) (user.User, error)
}

type seedAccount struct {
	email    string
	password string
	role     string
}

// EnsureDefaultUsers seeds the bootstrap accounts on first start: a manager
// (without at least one nobody can create projects, so the API would be
// unusable) and a default engineer. Each account is a no-op when it already
// exists or when its password is not configured.
func EnsureDefaultUsers(ctx context.Context, users UserSeedStore, cfg config.Config) error {
	for _, a := range seedAccounts(cfg) {
		if err := ensureUser(ctx, users, a); err != nil {
			return err
		}
	}

	return nil
}

func seedAccounts(cfg config.Config) []seedAccount {
	var out []seedAccount

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		out = append(out, seedAccount{cfg.AdminEmail, cfg.AdminPassword, user.RoleManager})
	}

	if cfg.EngineerEmail != "" && cfg.EngineerPassword != "" {
		out = append(out, seedAccount{cfg.EngineerEmail, cfg.EngineerPassword, user.RoleEngineer})
	}

	return out
}

func ensureUser(ctx context.Context, users UserSeedStore, a seedAccount) error {
	email := user.NormalizeEmail(a.email)

	_, err := users.GetByEmail(ctx, email)

	if err == nil {
		return nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(a.password)

	if err != nil {
		return err
	}

	_, err = users.Create(ctx, email, hash, a.role)

	// a concurrently booting instance may have won the insert
	if errors.Is(err, user.ErrEmailTaken) {
		return nil
	}

	return err
}
