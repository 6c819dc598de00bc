package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/db"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/auth"
)

// minAdminPasswordLength applies before any security settings exist.
const minAdminPasswordLength = 10

// AdminStore is the part of the account repository the seed needs.
type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (*appModels.UserAccount, error)
	CreateWithHash(ctx context.Context, q db.Querier, account *appModels.UserAccount) (int64, error)
}

// CreateDefaultAdmin creates the first administrator from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD. Without both it does nothing; there is no built-in
// password. An existing account with that email is left untouched.
func CreateDefaultAdmin(ctx context.Context, accounts AdminStore, q db.Querier, email, password string, lgr zerolog.Logger) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		lgr.Info().Msg("No seed admin configured, skipping")
		return nil
	}

	existing, err := accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		lgr.Info().Str("email", auth.MaskEmail(email)).Str("role", string(existing.Role)).Msg("Seed admin already exists")
		return nil
	case !errors.Is(err, apperrors.ErrResourceNotFound):
		return fmt.Errorf("error looking up seed admin: %w", err)
	}

	if err := auth.ValidatePassword(password, minAdminPasswordLength); err != nil {
		return fmt.Errorf("seed admin password rejected: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing seed admin password: %w", err)
	}

	admin := &appModels.UserAccount{
		Email:        email,
		PasswordHash: hash,
		Role:         appModels.RoleAdmin,
		IsActive:     true,
	}
	id, err := accounts.CreateWithHash(ctx, q, admin)
	if err != nil {
		return fmt.Errorf("error creating seed admin: %w", err)
	}

	lgr.Info().Int64("accountID", id).Str("email", auth.MaskEmail(email)).Msg("Seed admin created")
	return nil
}
