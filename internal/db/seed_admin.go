package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/security"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
}

// EnsureAdminUser creates the bootstrap account from ADMIN_* settings when it does not exist
// yet. Login is the only public route, so without it a fresh store is unreachable.
func EnsureAdminUser(ctx context.Context, store AdminStore, cfg config.Config) (created bool, err error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	email := strings.TrimSpace(cfg.AdminEmail)

	_, err = store.GetByEmail(ctx, email)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	req := user.CreateRequest{
		Name:     cfg.AdminName,
		Email:    email,
		Role:     cfg.AdminRole,
		Password: cfg.AdminPassword,
	}
	req.Normalize()

	if err := req.Validate(); err != nil {
		return false, fmt.Errorf("admin settings: %w", err)
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		return false, err
	}

	_, err = store.Create(ctx, req.ToNewUser(hash))

	// another replica may have seeded it first
	if errors.Is(err, user.ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
