package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/parley/pkg/cli"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the chat store schema",
	Long: `Apply or roll back the chat store schema migrations for the configured
storage backend (sqlite or postgres).

Examples:
  # Apply all pending migrations
  parley migrate up

  # Roll back the most recent migration
  parley migrate down

  # Print the current schema version
  parley migrate status`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, migrateUp)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, migrateDown)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, migrateStatus)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

type migrationAction int

const (
	migrateUp migrationAction = iota
	migrateDown
	migrateStatus
)

func runMigration(cmd *cobra.Command, action migrationAction) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := migrate(cmd.Context(), cfg.Storage, action, cmd.OutOrStdout()); err != nil {
		return cli.NewCommandError("migrate", err)
	}
	return nil
}

// migrate performs action against the configured backend and reports the
// resulting schema version to out.
func migrate(ctx context.Context, cfg config.StorageConfig, action migrationAction, out io.Writer) error {
	db, dialect, err := storage.OpenMigrationDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	status := cli.NewStatus(out)
	switch action {
	case migrateUp:
		if err := storage.Migrate(ctx, db, dialect); err != nil {
			return err
		}
	case migrateDown:
		if err := storage.Rollback(ctx, db, dialect); err != nil {
			return err
		}
	case migrateStatus:
	default:
		return fmt.Errorf("unknown migration action %d", action)
	}

	version, err := storage.Version(ctx, db, dialect)
	if err != nil {
		return err
	}

	switch action {
	case migrateUp:
		status.Success("Migrated %s store to version %d", cfg.Backend, version)
	case migrateDown:
		status.Success("Rolled back %s store to version %d", cfg.Backend, version)
	default:
		status.Println("%s schema version: %d", cfg.Backend, version)
	}
	return nil
}
