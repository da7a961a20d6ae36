// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	userstore "github.com/dalemusser/dormdesk/internal/app/store/users"
	"github.com/dalemusser/dormdesk/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. DormDesk
// uses it to seed the bootstrap admin account so a fresh deployment is
// sign-in-able without manual database edits.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.AdminEmail == "" {
		return nil
	}

	users := userstore.New(deps.MongoDatabase)
	if _, err := users.GetByEmail(ctx, appCfg.AdminEmail); err == nil {
		return nil // already seeded
	} else if !errors.Is(err, userstore.ErrNotFound) {
		return fmt.Errorf("admin lookup: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(appCfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin, err := users.Create(ctx, models.User{
		FullName:     "Administrator",
		Email:        appCfg.AdminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			return nil // raced with another instance
		}
		return fmt.Errorf("create admin: %w", err)
	}

	logger.Info("seeded bootstrap admin account",
		zap.String("user_id", admin.ID.Hex()),
		zap.String("email", admin.Email))
	return nil
}
