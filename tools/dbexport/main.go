// Package main provides a CLI tool for copying a debatetab SQLite database
// into MySQL, preserving primary keys.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/debatetab/debatetab/internal/datastore"
	"github.com/debatetab/debatetab/internal/logger"
)

// Version information (can be set via ldflags during build)
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg Config

	cmd := &cobra.Command{
		Use:     "dbexport",
		Short:   "Export debatetab data from SQLite to MySQL",
		Version: version,
		Long: `Copy every debatetab table from a SQLite database into MySQL.

Primary keys are preserved and foreign key checks are disabled on the
target while rows are copied, so tables can be loaded in any state.
Rows already present in the target are skipped.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			return runExport(cmd, &cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.SQLitePath, "sqlite-path", "", "Path to source SQLite database file")
	cmd.Flags().StringVar(&cfg.MySQL.Host, "mysql-host", "", "MySQL host")
	cmd.Flags().StringVar(&cfg.MySQL.Port, "mysql-port", "3306", "MySQL port")
	cmd.Flags().StringVar(&cfg.MySQL.Username, "mysql-user", "debatetab", "MySQL username")
	cmd.Flags().StringVar(&cfg.MySQL.Password, "mysql-pass", "", "MySQL password")
	cmd.Flags().StringVar(&cfg.MySQL.Database, "mysql-database", "debatetab", "MySQL database name")
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", 1000, "Number of records per batch")
	cmd.Flags().BoolVar(&cfg.Clean, "clean", false, "Delete target rows before copying")
	cmd.Flags().BoolVar(&cfg.SkipVerify, "skip-verify", false, "Skip post-export verification")
	cmd.Flags().BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose output")
	cmd.Flags().StringVar(&cfg.ConfigPath, "config", "", "Path to config.yaml (for connection fallback)")

	return cmd
}

func runExport(cmd *cobra.Command, cfg *Config) error {
	out := cmd.OutOrStdout()
	level := logger.LogLevelWarn
	if cfg.Verbose {
		level = logger.LogLevelDebug
	}
	log := logger.NewConsoleLogger("dbexport", level)

	source, err := datastore.NewSQLiteManager(cfg.SQLitePath, log)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer func() { _ = source.Close() }()

	target, err := datastore.NewMySQLManager(&cfg.MySQL, log)
	if err != nil {
		return fmt.Errorf("failed to open MySQL database: %w", err)
	}
	defer func() { _ = target.Close() }()
	if err := target.Initialize(); err != nil {
		return fmt.Errorf("failed to create target tables: %w", err)
	}

	fmt.Fprintf(out, "Source: %s\nTarget: %s\n", cfg.SQLitePath, cfg.SanitizedTarget())

	migrator := NewMigrator(source.DB(), target.DB(), Options{
		BatchSize: cfg.BatchSize,
		Clean:     cfg.Clean,
		Verbose:   cfg.Verbose,
		Out:       out,
	})
	stats, err := migrator.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	stats.Print(out)

	if !cfg.SkipVerify {
		fmt.Fprintln(out, "\n--- Verification ---")
		if err := NewVerifier(source.DB(), target.DB(), out).Verify(cmd.Context()); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		fmt.Fprintln(out, "Verification passed!")
	}
	return nil
}
