package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/setlistify/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the bundled example config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if _, err := os.Stat(path); err == nil {
		r.writePlain("Config file already exists at %s\n", path)
		return nil
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidConfig, err)
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.setlistfm.api_key (or SETLIST_API_KEY)\n")
	r.writePlain("2. Set the Spotify client_id, client_secret and redirect_uri (or SPOTIFY_* variables)\n")
	r.writePlain("3. Run 'setlistify spotify auth'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Database
	r.logger.Info("initializing database", "path", cfg.Path)

	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", cfg.Path)
	r.writePlain("✓ Database ready at %s (migrations applied: %d)\n", cfg.Path, applied)
	return nil
}
