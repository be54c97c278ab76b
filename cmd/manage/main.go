package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mvlbulankin/yamdb-final/internal/broker"
	"github.com/mvlbulankin/yamdb-final/internal/config"
	"github.com/mvlbulankin/yamdb-final/internal/database"
	"github.com/mvlbulankin/yamdb-final/internal/middleware"
	"github.com/mvlbulankin/yamdb-final/internal/models"
	"github.com/mvlbulankin/yamdb-final/internal/repository"
	"github.com/mvlbulankin/yamdb-final/internal/service"
	"github.com/mvlbulankin/yamdb-final/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "manage",
		Short:         "YaMDb maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.Init(true)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	root.AddCommand(
		newMigrateCmd(),
		newCreateAdminCmd(),
		newBanIPCmd(true),
		newBanIPCmd(false),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := openDatabase()
			return err
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var username, email string

	cmd := &cobra.Command{
		Use:   "createadmin",
		Short: "Create the bootstrap admin account (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if username == "" {
				username = cfg.AdminUsername
			}
			if email == "" {
				email = cfg.AdminEmail
			}
			if username == "" || email == "" {
				return errors.New("admin username and email are required (flags or ADMIN_USERNAME/ADMIN_EMAIL)")
			}

			db, err := openDatabase()
			if err != nil {
				return err
			}
			return createAdmin(cmd.Context(), repository.NewUserRepository(db), username, email)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username (defaults to ADMIN_USERNAME)")
	cmd.Flags().StringVar(&email, "email", "", "admin email (defaults to ADMIN_EMAIL)")
	return cmd
}

// createAdmin promotes an existing account with the same username and email,
// creates a new one otherwise.
func createAdmin(ctx context.Context, users repository.UserRepository, username, email string) error {
	existing, err := users.FindByUsernameAndEmail(ctx, username, email)
	if err != nil {
		return err
	}

	admin := models.RoleAdmin
	svc := service.NewUserService(users)
	if existing != nil {
		if existing.Role == models.RoleAdmin {
			logger.Log.Info("Admin already exists", zap.String("username", username))
			return nil
		}
		if _, err := svc.Update(ctx, username, service.UserPatch{Role: &admin}); err != nil {
			return err
		}
		logger.Log.Info("Existing user promoted to admin", zap.String("username", username))
		return nil
	}

	user, err := svc.Create(ctx, service.UserInput{Username: username, Email: email, Role: admin})
	if err != nil {
		return err
	}
	logger.Log.Info("Admin created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)
	return nil
}

func newBanIPCmd(ban bool) *cobra.Command {
	use, short := "ban-ip <ip>", "Ban an IP address from the API"
	if !ban {
		use, short = "unban-ip <ip>", "Lift an IP ban"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.RedisURL == "" {
				return errors.New("REDIS_URL is required")
			}

			client, err := broker.Connect(cmd.Context(), cfg.RedisURL)
			if err != nil {
				return err
			}
			defer client.Close()

			limiter := middleware.NewRateLimiter(client, middleware.RateLimiterConfig{
				MaxRequests: cfg.RateLimitMaxRequests,
				Window:      cfg.RateLimitWindow,
				BlockTime:   cfg.RateLimitBlockTime,
			})
			if ban {
				err = limiter.BanIP(cmd.Context(), args[0])
			} else {
				err = limiter.UnbanIP(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			logger.Log.Info("IP ban list updated", zap.String("ip", args[0]), zap.Bool("banned", ban))
			return nil
		},
	}
}

func openDatabase() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
