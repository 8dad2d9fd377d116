package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/wrapped/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing, initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		r.writePrompt("✓ Created %s; set credentials.spotify.client_id before logging in\n", configPath)
	}

	if err := r.configure(cmd); err != nil {
		return err
	}

	dbConfig := r.config.Database
	r.logger.Info("initializing database", "path", dbConfig.Path)

	db, err := shared.NewDatabase(dbConfig.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, max(dbConfig.MaxOpenConns, 1), max(dbConfig.MaxIdleConns, 1))

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", dbConfig.Path)
	return nil
}
