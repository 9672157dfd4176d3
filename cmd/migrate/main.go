package main

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"tripfriend_bot/internal/storage"
	"tripfriend_bot/migrations"
)

var dbPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "migrate manages the session database schema.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", envOrDefault("DATABASE_PATH", "./data/bot.db"), "path to sqlite database")

	short := map[string]string{
		"up":      "Migrate to the latest version",
		"up-one":  "Migrate one version up",
		"down":    "Roll back one version",
		"status":  "Show migration status",
		"version": "Show current version",
		"reset":   "Roll back all migrations",
	}
	for _, name := range migrations.Commands {
		root.AddCommand(gooseCmd(name, short[name]))
	}
	root.AddCommand(purgeCmd())
	return root
}

func gooseCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := sql.Open("sqlite", dbPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			return migrations.Apply(db, name)
		},
	}
}

func purgeCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete sessions not updated within the given duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewSQLite(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			n, err := store.DeleteExpiredSessions(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d sessions\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "session age to purge")
	return cmd
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
