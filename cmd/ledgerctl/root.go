package main

import (
	"fmt"
	"runtime"

	"github.com/cardledger/internal/config"
	"github.com/cardledger/internal/database"
	"github.com/cardledger/pkg/keygen"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Version information, set at build time using ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Administration tool for the corporate card ledger",
		Long: `ledgerctl manages the corporate card ledger database.

It migrates the schema, creates users with their default categories and
generates signing secrets for the API server.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	loadConfig := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(newMigrateCmd(loadConfig))
	root.AddCommand(newUserCmd(loadConfig))
	root.AddCommand(newGenSecretCmd())
	root.AddCommand(newVersionCmd())
	return root
}

type configLoader func() (*config.Config, error)

// openDB loads the config and connects to the configured database
func openDB(load configLoader) (*gorm.DB, error) {
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.Open(cfg.Database, "release")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(load)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.AutoMigrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func newGenSecretCmd() *cobra.Command {
	var size int

	cmd := &cobra.Command{
		Use:   "gen-secret",
		Short: "Print a random JWT signing secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size < 32 {
				return fmt.Errorf("secret must be at least 32 bytes, got %d", size)
			}
			secret, err := keygen.GenerateSecret(size)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "bytes", 48, "number of random bytes")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ledgerctl version %s\n", Version)
			fmt.Fprintf(out, "  Git commit: %s\n", Commit)
			fmt.Fprintf(out, "  Built:      %s\n", BuildTime)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
