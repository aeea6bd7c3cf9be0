package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/sykell/bookmarks/internal/config"
	"github.com/sykell/bookmarks/internal/db"
	"github.com/sykell/bookmarks/internal/logger"
	"github.com/sykell/bookmarks/internal/service"
)

// SeedConfig holds seed configuration
type SeedConfig struct {
	ConfigPath string
	Username   string
	Password   string
	Force      bool
}

// NewSeedConfig creates a new seed configuration
func NewSeedConfig() *SeedConfig {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "Path to YAML config file")
	username := flag.String("username", "admin", "Admin username")
	password := flag.String("password", "adminpass", "Admin password")
	force := flag.Bool("force", false, "Force recreation of admin user")

	flag.Parse()

	return &SeedConfig{
		ConfigPath: *configPath,
		Username:   *username,
		Password:   *password,
		Force:      *force,
	}
}

func main() {
	if err := run(NewSeedConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run(seed *SeedConfig) error {
	cfg, err := config.Load(seed.ConfigPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Debug: cfg.Logging.Debug})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting database seeding")
	dbConn, err := db.InitDB(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	ctx := context.Background()
	existing, err := service.GetUserByUsername(ctx, dbConn, seed.Username)
	switch {
	case err == nil:
		if !seed.Force {
			log.Info("Admin user already exists, use -force to recreate", logger.String("username", seed.Username))
			return nil
		}
		log.Info("Recreating admin user", logger.String("username", seed.Username))
		if err := dbConn.WithContext(ctx).Delete(existing).Error; err != nil {
			return fmt.Errorf("delete existing user: %w", err)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("check existing user: %w", err)
	}

	user, err := service.CreateUser(ctx, dbConn, seed.Username, seed.Password)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	log.Info("Database seeding completed",
		logger.String("username", user.Username),
		logger.Uint("user_id", user.ID),
	)
	return nil
}
