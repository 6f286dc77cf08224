package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/sp2yt/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if configPath == "" {
		return fmt.Errorf("%w: --config", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set SP_CLIENT_ID, SP_CLIENT_SECRET and YT_API_KEY (in the environment or .env)\n")
	r.writePlain("2. Download the OAuth client secrets JSON and set credentials.youtube.client_secrets_file\n")
	r.writePlain("3. Run 'sp2yt transfer run --playlist <id> --dry-run' to preview the matches\n")
	return nil
}

// SetupDatabase initializes the run ledger and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	if path := cmd.String("path"); path != "" {
		config.Database.Path = path
	}
	if config.Database.Path == "" {
		return fmt.Errorf("%w: --path or database.path", shared.ErrMissingArgument)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenLedger(config.Database)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	version, err := shared.CurrentVersion(db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s (schema version %d)\n", config.Database.Path, version)
	return nil
}
