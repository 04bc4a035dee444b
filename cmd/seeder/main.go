// cmd/seeder/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/churchcare-backend/internal/auth"
	"github.com/unclebandit/churchcare-backend/internal/config"
	"github.com/unclebandit/churchcare-backend/internal/db"
	appErrors "github.com/unclebandit/churchcare-backend/internal/errors"
	"github.com/unclebandit/churchcare-backend/internal/logging"
	"github.com/unclebandit/churchcare-backend/internal/model"
	"github.com/unclebandit/churchcare-backend/internal/repository"
)

// demoOrganizationID matches the organization inserted by seed_001_demo.sql.
const demoOrganizationID = "00000000-0000-0000-0000-000000000001"

var errMissingPassword = errors.New("SEED_ADMIN_PASSWORD is required")

type admin struct {
	Email    string
	Password string
	Name     string
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
}

type hasher interface {
	Hash(password string) (string, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.Env, cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("seeding failed")
	}
}

func adminFromEnv() admin {
	return admin{
		Email:    config.GetEnv("SEED_ADMIN_EMAIL", "admin@gracechurch.org"),
		Password: config.GetEnv("SEED_ADMIN_PASSWORD", ""),
		Name:     config.GetEnv("SEED_ADMIN_NAME", "Church Administrator"),
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	a := adminFromEnv()
	if a.Password == "" {
		return errMissingPassword
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, db.Options{URL: cfg.DatabaseURL}, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("schema migrated")

	if err := db.Seed(ctx, conn); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	log.Info("demo data seeded")

	created, err := seedAdmin(ctx, &repository.UserRepository{DB: conn}, auth.NewPasswordHasher(cfg.BcryptSaltRounds), a)
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	log.WithFields(logrus.Fields{"email": a.Email, "created": created}).Info("admin user ready")
	return nil
}

// seedAdmin creates the demo organization's admin unless the email is taken.
func seedAdmin(ctx context.Context, users userStore, h hasher, a admin) (bool, error) {
	if a.Password == "" {
		return false, errMissingPassword
	}

	_, err := users.GetByEmail(ctx, a.Email)
	if err == nil {
		return false, nil
	}
	if !appErrors.IsNotFound(err) {
		return false, fmt.Errorf("look up %s: %w", a.Email, err)
	}

	hash, err := h.Hash(a.Password)
	if err != nil {
		return false, err
	}
	orgID := demoOrganizationID
	u := &model.User{
		Email:          a.Email,
		PasswordHash:   hash,
		DisplayName:    a.Name,
		Role:           auth.RoleAdmin,
		OrganizationID: &orgID,
		IsActive:       true,
	}
	if err := users.Create(ctx, u); err != nil {
		return false, fmt.Errorf("create %s: %w", a.Email, err)
	}
	return true, nil
}
