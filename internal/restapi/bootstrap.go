package restapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/projecthub/internal/models"
	"github.com/terra-clan/projecthub/internal/storage"
)

// AccountStore is the account part of storage.Repository
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
}

// EnsureAdmin creates the administrator account if it does not exist yet.
// Self-registration only ever creates students, so this is the only way an
// admin account comes into being.
func EnsureAdmin(ctx context.Context, accounts AccountStore, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, errors.New("admin email and password are required")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	err = accounts.CreateAccount(ctx, &models.Account{
		ID:           uuid.New().String(),
		FullName:     "Administrator",
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, storage.ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create admin account: %w", err)
	}

	slog.Info("admin account created", "email", email)
	return true, nil
}
