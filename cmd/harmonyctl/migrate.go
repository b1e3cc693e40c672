package main

import (
	"fmt"

	"github.com/Priya8975/harmony-node/internal/credential"
	"github.com/Priya8975/harmony-node/internal/store"
	"github.com/spf13/cobra"
)

var (
	databaseURL   string
	migrationsDir string
)

// migrateCmd applies pending schema migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		pg, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.RunMigrations(cmd.Context(), migrationsDir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("database migrations applied", "dir", migrationsDir)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (default $DATABASE_URL)")
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "migrations", "directory holding *.up.sql files")
	rootCmd.AddCommand(migrateCmd)
}

// openStore connects with the node's own settings so that anything written
// here reads back the same way in the server.
func openStore(cmd *cobra.Command) (*store.PostgresStore, error) {
	url := valueOrEnv(databaseURL, "DATABASE_URL")
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	vault := credential.NewVault(valueOrEnv("", "PASSWORD_ENCRYPTION_KEY"))
	return store.NewPostgres(cmd.Context(), url, vault)
}
